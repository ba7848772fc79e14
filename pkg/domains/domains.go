// Package domains maps URLs and hosts to their registrable domain (eTLD+1)
// and derives first/third-party and tracker verdicts relative to a scan's
// root domain. All functions are pure and safe for concurrent use.
package domains

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// TrackerSet is the read-only view of the tracker catalog the classifier
// needs. Satisfied by *trackers.Catalog.
type TrackerSet interface {
	Contains(domain string) bool
}

// Classification is the verdict for one request URL relative to a scan root.
type Classification struct {
	Domain       string `json:"domain"`
	IsThirdParty bool   `json:"is_third_party"`
	IsTracker    bool   `json:"is_tracker"`
}

// Registrable returns the public-suffix-aware registrable domain (eTLD+1)
// of host. Multi-label public suffixes are handled correctly, so
// "www.example.co.uk" yields "example.co.uk", not "co.uk".
//
// Hosts that carry no registrable domain — IP literals, bare TLDs,
// single-label names — degrade to the full host, lowercased, so callers
// always get a non-empty key for a non-empty host.
func Registrable(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(host, "."), "."))
	if host == "" {
		return ""
	}

	// Strip a port if present; IPv6 literals keep their brackets until here.
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	// IP literals have no registrable domain.
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// Classify maps a request URL to its registrable domain and derives the
// third-party and tracker verdicts relative to rootDomain (itself a
// registrable domain). A malformed URL degrades to classifying whatever
// host portion could be recovered; the result is deterministic for a given
// (requestURL, rootDomain, catalog) triple.
func Classify(requestURL, rootDomain string, catalog TrackerSet) Classification {
	host := ""
	if u, err := url.Parse(requestURL); err == nil {
		host = u.Hostname()
	}
	if host == "" {
		// Not a URL; treat the input as a bare host (cookie domains
		// arrive this way).
		host = requestURL
	}

	domain := Registrable(host)
	c := Classification{
		Domain:       domain,
		IsThirdParty: domain != rootDomain,
	}
	if catalog != nil {
		c.IsTracker = catalog.Contains(domain)
	}
	return c
}

// RootFromURL returns the registrable domain of a navigation target's URL,
// the value every per-request classification is compared against.
func RootFromURL(rawURL string) string {
	// Schemeless inputs parse with an empty host; classify the raw value
	// as a bare host then.
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return Registrable(u.Hostname())
	}
	return Registrable(rawURL)
}
