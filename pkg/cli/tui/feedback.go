package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"redirect-mgmt-go/pkg/cli/links"
	"redirect-mgmt-go/pkg/coord"
)

// HandleRepaired points the tracked link at its fallback.
func (m *Model) HandleRepaired(msg coord.Repaired) {
	link, ok := m.reg.ApplyRepair(msg.Alias, msg.NewURL, msg.NewDomain)
	if !ok {
		m.log.Warn("repair for unknown link", "alias", msg.Alias, "short_url", msg.ShortURL)
		return
	}
	m.print(renderWarning(fmt.Sprintf("Link(%d) redirected to fallback URL %s", link.ID, links.TruncateURL(msg.NewURL, 60))))
}

// HandleDelete drops a link the monitor purged.
func (m *Model) HandleDelete(msg coord.Delete) {
	link, ok := m.reg.FindByShortURL(msg.ShortURL)
	if !ok {
		link, ok = m.reg.FindByAlias(msg.Alias)
	}
	if !ok {
		return
	}
	m.reg.Remove(link.ID)
	reason := msg.Reason
	if reason == "" {
		reason = "no working target"
	}
	m.print(renderError(fmt.Sprintf("Link(%d) %s removed: %s", link.ID, link.ShortURL, reason)))
}

// HandleReport prints a one line summary plus anything that needs attention.
func (m *Model) HandleReport(msg coord.Report) {
	r := msg.SweepReport
	m.print(mutedStyle.Render(fmt.Sprintf("sweep %s: %d checked, %d healthy in %s",
		shortID(r.SweepID), r.Checked, r.Healthy, r.Duration.Round(time.Millisecond))))

	for _, short := range sortedKeys(r.Errors) {
		m.print(renderWarning(fmt.Sprintf("%s %s", m.label(short), r.Errors[short])))
	}
	for _, short := range sortedKeys(r.PreviewErrors) {
		m.print(renderWarning(fmt.Sprintf("%s shows a preview page instead of redirecting (expected %s)",
			m.label(short), r.PreviewErrors[short])))
	}
	if len(r.Incomplete) > 0 {
		m.print(renderWarning(fmt.Sprintf("%d check(s) did not finish: %s",
			len(r.Incomplete), strings.Join(r.Incomplete, ", "))))
	}
	if len(r.Repaired) > 0 {
		m.print(renderInfo(fmt.Sprintf("repaired: %s", strings.Join(r.Repaired, ", "))))
	}
	if len(r.Purged) > 0 {
		m.print(renderError(fmt.Sprintf("purged: %s", strings.Join(r.Purged, ", "))))
	}
}

func (m *Model) label(shortURL string) string {
	link, ok := m.reg.FindByShortURL(shortURL)
	if !ok {
		return shortURL
	}
	return fmt.Sprintf("Link(%d) %s", link.ID, shortURL)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
