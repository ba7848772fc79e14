// Package compare diffs two completed scan results. It runs out-of-band
// over persisted results — typically a baseline/strict pair of the same
// site, though nothing stops comparing different sites; interpreting that
// is the caller's judgment.
package compare

import (
	"errors"
	"fmt"
	"sort"

	"github.com/privacyscope/privacyscope/pkg/scan"
)

// ErrNotCompleted rejects comparison inputs that did not finish scoring.
var ErrNotCompleted = errors.New("compare: scan result is not completed")

// Result captures the deltas from scan A to scan B. All numeric deltas are
// B minus A, so a positive ScoreDelta means B scored better.
type Result struct {
	AURL     string       `json:"a_url"`
	BURL     string       `json:"b_url"`
	AProfile scan.Profile `json:"a_profile"`
	BProfile scan.Profile `json:"b_profile"`

	ScoreDelta            int   `json:"score_delta"`
	ThirdPartyDomainDelta int   `json:"third_party_domain_delta"`
	CookieDelta           int   `json:"cookie_delta"`
	ByteDelta             int64 `json:"byte_delta"`

	// DomainsAdded are domains observed in B but not A; DomainsRemoved
	// the converse. Both sorted.
	DomainsAdded   []string `json:"domains_added"`
	DomainsRemoved []string `json:"domains_removed"`

	// Cookie membership is keyed by (name, domain).
	CookiesAddedCount   int `json:"cookies_added_count"`
	CookiesRemovedCount int `json:"cookies_removed_count"`
}

// Compare diffs two completed results. Comparing a failed or unscored scan
// is an error: its aggregates are partial and the deltas would lie.
func Compare(a, b *scan.Result) (*Result, error) {
	if err := checkCompleted("a", a); err != nil {
		return nil, err
	}
	if err := checkCompleted("b", b); err != nil {
		return nil, err
	}

	aDomains := domainSet(a)
	bDomains := domainSet(b)
	aCookies := cookieSet(a)
	bCookies := cookieSet(b)

	return &Result{
		AURL:     a.URL,
		BURL:     b.URL,
		AProfile: a.Profile,
		BProfile: b.Profile,

		ScoreDelta:            *b.PrivacyScore - *a.PrivacyScore,
		ThirdPartyDomainDelta: b.ThirdPartyDomains - a.ThirdPartyDomains,
		CookieDelta:           b.CookiesSet - a.CookiesSet,
		ByteDelta:             b.TotalBytes - a.TotalBytes,

		DomainsAdded:   missingFrom(bDomains, aDomains),
		DomainsRemoved: missingFrom(aDomains, bDomains),

		CookiesAddedCount:   countMissing(bCookies, aCookies),
		CookiesRemovedCount: countMissing(aCookies, bCookies),
	}, nil
}

func checkCompleted(label string, r *scan.Result) error {
	if r == nil {
		return fmt.Errorf("%w: %s is nil", ErrNotCompleted, label)
	}
	if r.Status != scan.StatusCompleted || r.PrivacyScore == nil {
		return fmt.Errorf("%w: %s has status %q", ErrNotCompleted, label, r.Status)
	}
	return nil
}

func domainSet(r *scan.Result) map[string]bool {
	set := make(map[string]bool, len(r.Domains))
	for _, d := range r.Domains {
		set[d.Domain] = true
	}
	return set
}

func cookieSet(r *scan.Result) map[string]bool {
	set := make(map[string]bool, len(r.Cookies))
	for _, c := range r.Cookies {
		set[c.Name+"\x00"+c.Domain] = true
	}
	return set
}

// missingFrom returns the members of have that are absent from other,
// sorted.
func missingFrom(have, other map[string]bool) []string {
	out := make([]string, 0)
	for k := range have {
		if !other[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func countMissing(have, other map[string]bool) int {
	n := 0
	for k := range have {
		if !other[k] {
			n++
		}
	}
	return n
}
