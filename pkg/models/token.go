package models

// Token is a provider credential. IDs are 1-based in the order tokens were configured.
type Token struct {
	ID       int    `json:"id"`
	Value    string `json:"-"`
	Selected bool   `json:"selected"`
}

// Masked hides all but the last four characters of the token.
func (t Token) Masked() string {
	if len(t.Value) <= 4 {
		return "****"
	}
	return "****" + t.Value[len(t.Value)-4:]
}
