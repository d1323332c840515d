package links

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"redirect-mgmt-go/pkg/models"
)

// FormatTableOutput formats links as the short list: id, short URL and
// target.
func FormatTableOutput(links []models.Link) string {
	if len(links) == 0 {
		return "No links tracked."
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tShort URL\tTarget")
	fmt.Fprintln(w, strings.Repeat("─", 4)+"\t"+strings.Repeat("─", 30)+"\t"+strings.Repeat("─", 34))

	for _, link := range links {
		fmt.Fprintf(w, "%d\t%s\t-->  %s\n", link.ID, link.ShortURL, ShortTarget(link))
	}

	w.Flush()
	b.WriteString(fmt.Sprintf("\nTotal: %d link(s)\n", len(links)))
	return b.String()
}

// FormatDetail renders every field of one link.
func FormatDetail(link models.Link) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Link[%d]\n", link.ID))
	b.WriteString(strings.Repeat("─", 34) + "\n")
	b.WriteString(fmt.Sprintf("  url:      %s\n", link.ShortURL))
	b.WriteString(fmt.Sprintf("  alias:    %s\n", link.Alias))
	b.WriteString(fmt.Sprintf("  target:   %s\n", link.IntendedTarget))
	b.WriteString(fmt.Sprintf("  domain:   %s\n", Domain(link)))
	b.WriteString(fmt.Sprintf("  token id: %d\n", link.TokenID))
	if !link.CreatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("  created:  %s\n", FormatDate(link.CreatedAt)))
	}
	if !link.UpdatedAt.IsZero() && !link.UpdatedAt.Equal(link.CreatedAt) {
		b.WriteString(fmt.Sprintf("  updated:  %s\n", FormatDate(link.UpdatedAt)))
	}
	return b.String()
}

// FormatAll renders the detail block for every link.
func FormatAll(links []models.Link) string {
	if len(links) == 0 {
		return "No links tracked."
	}
	blocks := make([]string, 0, len(links))
	for _, link := range links {
		blocks = append(blocks, FormatDetail(link))
	}
	return strings.Join(blocks, "\n")
}

// FormatTokens lists credentials masked, marking the selected one.
func FormatTokens(tokens []models.Token) string {
	if len(tokens) == 0 {
		return "No tokens configured."
	}
	var b strings.Builder
	var current models.Token
	for _, t := range tokens {
		b.WriteString(fmt.Sprintf("%d. - %s\n", t.ID, t.Masked()))
		if t.Selected {
			current = t
		}
	}
	if current.ID != 0 {
		b.WriteString(fmt.Sprintf("\nCurrent token:\n%d. - %s\n", current.ID, current.Masked()))
	}
	return b.String()
}

// FormatInterval is the footer of list and info views.
func FormatInterval(d time.Duration) string {
	return fmt.Sprintf("Pinging interval is %d seconds", int(d.Seconds()))
}

// FormatErrorMessage formats an error message consistently
func FormatErrorMessage(err error) string {
	return fmt.Sprintf("❌ Error: %v\n", err)
}
