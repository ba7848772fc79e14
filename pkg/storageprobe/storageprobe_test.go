package storageprobe

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerSet map[string]bool

func (s trackerSet) Contains(d string) bool { return s[d] }

func TestClassifyCookies(t *testing.T) {
	t.Parallel()

	expires := float64(time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC).Unix())
	raw := []*network.Cookie{
		{Name: "sid", Domain: "example.com", Session: true, Expires: -1},
		{Name: "prefs", Domain: ".example.com", Expires: expires},
		{Name: "_ga", Domain: ".tracker.example", Expires: expires},
	}

	cookies := ClassifyCookies(raw, "example.com", trackerSet{"tracker.example": true})
	require.Len(t, cookies, 3)

	byName := map[string]Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	sid := byName["sid"]
	assert.False(t, sid.IsThirdParty)
	assert.True(t, sid.IsSession)
	assert.Nil(t, sid.ExpiresAt)

	prefs := byName["prefs"]
	assert.False(t, prefs.IsThirdParty, "leading-dot cookie domain classifies against its host")
	assert.False(t, prefs.IsSession)
	require.NotNil(t, prefs.ExpiresAt)
	assert.Equal(t, int64(expires), prefs.ExpiresAt.Unix())

	ga := byName["_ga"]
	assert.True(t, ga.IsThirdParty)
	assert.False(t, ga.IsSession)
}

func TestClassifyCookiesDeduplicates(t *testing.T) {
	t.Parallel()

	raw := []*network.Cookie{
		{Name: "sid", Domain: "example.com", Session: true},
		{Name: "sid", Domain: "example.com", Session: true},
		{Name: "sid", Domain: "other.example.org", Session: true},
	}
	cookies := ClassifyCookies(raw, "example.com", nil)
	assert.Len(t, cookies, 2, "distinct (name, domain) pairs only")
}

func TestClassifyCookiesSorted(t *testing.T) {
	t.Parallel()

	raw := []*network.Cookie{
		{Name: "z", Domain: "b.example", Session: true},
		{Name: "a", Domain: "b.example", Session: true},
		{Name: "m", Domain: "a.example", Session: true},
	}
	cookies := ClassifyCookies(raw, "example.com", nil)
	require.Len(t, cookies, 3)
	assert.Equal(t, "a.example", cookies[0].Domain)
	assert.Equal(t, "a", cookies[1].Name)
	assert.Equal(t, "z", cookies[2].Name)
}

func TestParseSummary(t *testing.T) {
	t.Parallel()

	s, err := ParseSummary(`{"ls":7,"idb":true,"sw":false}`)
	require.NoError(t, err)
	assert.Equal(t, Summary{LocalStorageKeyCount: 7, IndexedDBPresent: true}, s)

	empty, err := ParseSummary(`{"ls":0,"idb":false,"sw":false}`)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, empty)

	_, err = ParseSummary("not json")
	assert.Error(t, err, "probe failure degrades to the zero summary at the caller")
}
