package tracker

import (
	"net/url"
	"strings"
)

// DomainOf returns the host of a trackable page URL. Browser-internal pages
// and anything that is not http(s) with a host are not trackable.
func DomainOf(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}
