package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/scan"
	"github.com/privacyscope/privacyscope/pkg/storageprobe"
)

func completed(profile scan.Profile, score int, domains []string, cookies [][2]string) *scan.Result {
	r := &scan.Result{
		URL:          "https://example.com",
		Status:       scan.StatusCompleted,
		Profile:      profile,
		PrivacyScore: &score,
	}
	for _, d := range domains {
		r.Domains = append(r.Domains, netintercept.DomainAggregate{Domain: d})
		if d != "example.com" {
			r.ThirdPartyDomains++
		}
	}
	for _, c := range cookies {
		r.Cookies = append(r.Cookies, storageprobe.Cookie{Name: c[0], Domain: c[1]})
	}
	r.CookiesSet = len(r.Cookies)
	return r
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := completed(scan.ProfileBaseline, 62,
		[]string{"example.com", "doubleclick.net", "cdn.example"},
		[][2]string{{"sid", "example.com"}, {"_ga", ".doubleclick.net"}})
	a.TotalBytes = 900_000

	b := completed(scan.ProfileStrict, 88,
		[]string{"example.com", "cdn.example", "fonts.example"},
		[][2]string{{"sid", "example.com"}})
	b.TotalBytes = 400_000

	got, err := Compare(a, b)
	require.NoError(t, err)

	assert.Equal(t, 26, got.ScoreDelta, "positive delta means B scored better")
	assert.Equal(t, 0, got.ThirdPartyDomainDelta)
	assert.Equal(t, -1, got.CookieDelta)
	assert.Equal(t, int64(-500_000), got.ByteDelta)
	assert.Equal(t, []string{"fonts.example"}, got.DomainsAdded)
	assert.Equal(t, []string{"doubleclick.net"}, got.DomainsRemoved)
	assert.Equal(t, 0, got.CookiesAddedCount)
	assert.Equal(t, 1, got.CookiesRemovedCount)
	assert.Equal(t, scan.ProfileBaseline, got.AProfile)
	assert.Equal(t, scan.ProfileStrict, got.BProfile)
}

func TestCompareRoundTripInverts(t *testing.T) {
	t.Parallel()

	a := completed(scan.ProfileBaseline, 70,
		[]string{"example.com", "x.example", "y.example"},
		[][2]string{{"one", "example.com"}, {"two", "x.example"}})
	a.TotalBytes = 123

	b := completed(scan.ProfileBaseline, 95,
		[]string{"example.com", "z.example"},
		[][2]string{{"one", "example.com"}, {"three", "z.example"}, {"four", "z.example"}})
	b.TotalBytes = 456

	ab, err := Compare(a, b)
	require.NoError(t, err)
	ba, err := Compare(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab.ScoreDelta, -ba.ScoreDelta)
	assert.Equal(t, ab.ThirdPartyDomainDelta, -ba.ThirdPartyDomainDelta)
	assert.Equal(t, ab.CookieDelta, -ba.CookieDelta)
	assert.Equal(t, ab.ByteDelta, -ba.ByteDelta)
	assert.Equal(t, ab.DomainsAdded, ba.DomainsRemoved)
	assert.Equal(t, ab.DomainsRemoved, ba.DomainsAdded)
	assert.Equal(t, ab.CookiesAddedCount, ba.CookiesRemovedCount)
	assert.Equal(t, ab.CookiesRemovedCount, ba.CookiesAddedCount)
}

func TestCompareRejectsNonCompleted(t *testing.T) {
	t.Parallel()

	ok := completed(scan.ProfileBaseline, 80, []string{"example.com"}, nil)

	failed := &scan.Result{Status: scan.StatusFailed}
	_, err := Compare(ok, failed)
	assert.ErrorIs(t, err, ErrNotCompleted)

	_, err = Compare(failed, ok)
	assert.ErrorIs(t, err, ErrNotCompleted)

	unscored := &scan.Result{Status: scan.StatusCompleted}
	_, err = Compare(ok, unscored)
	assert.ErrorIs(t, err, ErrNotCompleted, "completed without a score is rejected")

	_, err = Compare(nil, ok)
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestCompareIdentical(t *testing.T) {
	t.Parallel()

	a := completed(scan.ProfileBaseline, 75, []string{"example.com", "cdn.example"},
		[][2]string{{"sid", "example.com"}})
	got, err := Compare(a, a)
	require.NoError(t, err)

	assert.Zero(t, got.ScoreDelta)
	assert.Empty(t, got.DomainsAdded)
	assert.Empty(t, got.DomainsRemoved)
	assert.Zero(t, got.CookiesAddedCount)
	assert.Zero(t, got.CookiesRemovedCount)
}
