package utils

import (
	"net/url"
	"strings"
)

// ResolveDomain returns the last two labels of the URL's host, which is the
// key redirects are compared on. Subdomains are ignored, so
// "https://www.example.co.uk/x" resolves to "co.uk". Ports are dropped.
// An unparsable URL or one without a host yields "".
func ResolveDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// DomainAsURL turns a bare domain back into a resolvable URL.
func DomainAsURL(domain string) string {
	return "https://" + domain
}

// AliasFromShortURL returns the last path segment of a short link.
func AliasFromShortURL(shortURL string) string {
	u, err := url.Parse(shortURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
