package models

import "time"

// ShortLink is an alias held by the provider emulator.
type ShortLink struct {
	Alias     string     `json:"alias"`
	URL       string     `json:"url"`
	Domain    string     `json:"domain"`
	Preview   bool       `json:"preview"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Expired reports whether the link has passed its expiry at now.
func (l ShortLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Data is the provider response body for the link.
func (l ShortLink) Data() *LinkData {
	return &LinkData{URL: l.URL, Alias: l.Alias, Domain: l.Domain}
}
