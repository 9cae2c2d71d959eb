package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Profile is the same-host scoping policy of a crawl. It is the sole
// mechanism preventing a runaway crawl across the open web: a URL is
// crawlable only when its normalized host equals the project's base
// host.
//
// Normalization lowercases the host and strips a leading "www." so that
// www.example.com and example.com count as the same site. No broader
// subdomain allow-listing is performed.
type Profile struct {
	// host is the normalized host of the project's base URL.
	host string
}

// NewProfile builds a Profile from the project's base URL.
func NewProfile(baseURL string) (*Profile, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	host := NormalizeHost(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("base URL %q has no host", baseURL)
	}
	return &Profile{host: host}, nil
}

// Host returns the normalized base host.
func (p *Profile) Host() string {
	return p.host
}

// ShouldCrawl reports whether a candidate URL is in scope for the crawl.
// Unparseable URLs and non-HTTP schemes are always out of scope.
func (p *Profile) ShouldCrawl(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return NormalizeHost(u.Hostname()) == p.host
}

// NormalizeHost lowercases a host name and strips a leading "www."
// prefix. Used both for crawl scoping and for internal/external link
// classification so the two never disagree.
func NormalizeHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}
