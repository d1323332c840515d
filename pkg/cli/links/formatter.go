package links

import (
	"time"

	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/utils"
)

// ShortTarget is the target shown in list views. Long targets collapse to
// their domain.
func ShortTarget(link models.Link) string {
	if len(link.IntendedTarget) > 32 {
		return "http://" + link.ResolvedDomain + "/..."
	}
	return link.IntendedTarget
}

// TruncateURL truncates a URL to the specified max length
func TruncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

// FormatDate formats a time as a readable date string
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// Domain returns the link's resolved domain, deriving it when unset.
func Domain(link models.Link) string {
	if link.ResolvedDomain != "" {
		return link.ResolvedDomain
	}
	return utils.ResolveDomain(link.IntendedTarget)
}
