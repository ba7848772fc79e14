package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/score"
	"github.com/privacyscope/privacyscope/pkg/storageprobe"
)

func TestStateMachine(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()
		m := newMachine()
		for _, s := range []State{StateNavigating, StateCollecting, StateScored, StateCompleted} {
			require.NoError(t, m.advance(s))
		}
		assert.True(t, m.current().Terminal())
	})

	t.Run("skipping a state is an internal error", func(t *testing.T) {
		t.Parallel()
		m := newMachine()
		err := m.advance(StateCollecting)
		assert.ErrorIs(t, err, ErrInternal)
		assert.Equal(t, StateCreated, m.current())
	})

	t.Run("failed is reachable from any non-terminal state", func(t *testing.T) {
		t.Parallel()
		for _, pre := range []State{StateNavigating, StateCollecting, StateScored} {
			m := newMachine()
			for s := StateNavigating; s != pre; s = next[s] {
				require.NoError(t, m.advance(s))
			}
			if pre != StateNavigating {
				require.NoError(t, m.advance(pre))
			}
			m.fail()
			assert.Equal(t, StateFailed, m.current())
		}
	})

	t.Run("first terminal disposition wins", func(t *testing.T) {
		t.Parallel()
		m := newMachine()
		for _, s := range []State{StateNavigating, StateCollecting, StateScored, StateCompleted} {
			require.NoError(t, m.advance(s))
		}
		m.fail()
		assert.Equal(t, StateCompleted, m.current())
	})
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"validation", fmt.Errorf("%w: bad url", ErrValidation), KindValidation},
		{"timeout", fmt.Errorf("%w: slow", ErrNavigationTimeout), KindNavigationTimeout},
		{"bare deadline", context.DeadlineExceeded, KindNavigationTimeout},
		{"navigation", fmt.Errorf("%w: dns", ErrNavigationFailure), KindNavigationFailure},
		{"script", fmt.Errorf("%w: probe", ErrScriptEvaluation), KindScriptEvaluation},
		{"session", fmt.Errorf("%w: no chrome", ErrSessionAllocation), KindSessionAllocation},
		{"unknown", errors.New("surprise"), KindInternal},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestClassifyNavigationError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classifyNavigationError(nil))

	err := classifyNavigationError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNavigationTimeout)

	err = classifyNavigationError(errors.New("page load error net::ERR_NAME_NOT_RESOLVED"))
	assert.ErrorIs(t, err, ErrNavigationFailure)

	err = classifyNavigationError(errors.New("something else"))
	assert.ErrorIs(t, err, ErrNavigationFailure)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"ok http", Request{URL: "http://example.com", Profile: ProfileBaseline}, false},
		{"ok https strict", Request{URL: "https://example.com/x", Profile: ProfileStrict}, false},
		{"bad profile", Request{URL: "https://example.com", Profile: Profile("paranoid")}, true},
		{"no host", Request{URL: "https://", Profile: ProfileBaseline}, true},
		{"bad scheme", Request{URL: "file:///etc/passwd", Profile: ProfileBaseline}, true},
		{"not a url", Request{URL: "://nope", Profile: ProfileBaseline}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateRequest(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	eng := NewEngine(nil, Options{})
	res, err := eng.Run(context.Background(), Request{URL: "file:///x"})

	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	require.NotNil(t, res, "Run returns a result even on failure")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "validation_error")
	assert.Nil(t, res.PrivacyScore)
	assert.False(t, res.FinishedAt.IsZero())
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestRunDefaultsProfile(t *testing.T) {
	t.Parallel()

	eng := NewEngine(nil, Options{})
	res, _ := eng.Run(context.Background(), Request{URL: "file:///x"})
	assert.Equal(t, ProfileBaseline, res.Profile, "empty profile defaults to baseline")
}

func TestProfileValidity(t *testing.T) {
	t.Parallel()

	assert.True(t, ProfileBaseline.IsValid())
	assert.True(t, ProfileStrict.IsValid())
	assert.False(t, Profile("").IsValid())
	assert.False(t, Profile("audit").IsValid())
}

func TestSaveLoadResultRoundTrip(t *testing.T) {
	t.Parallel()

	s := 92
	exp := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := &Result{
		ScanID:       "scan-42",
		URL:          "https://example.com",
		FinalURL:     "https://www.example.com/",
		Status:       StatusCompleted,
		PageTitle:    "Example",
		HTTPStatus:   200,
		Profile:      ProfileBaseline,
		PrivacyScore: &s,
		StartedAt:    time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2026, 8, 28, 10, 0, 30, 0, time.UTC),
		Domains: []netintercept.DomainAggregate{{
			Domain:            "example.com",
			RequestCount:      3,
			TotalBytes:        1024,
			ResourceBreakdown: map[string]int{"document": 1, "script": 2},
		}},
		Cookies: []storageprobe.Cookie{
			{Name: "sid", Domain: "example.com", IsSession: true},
			{Name: "prefs", Domain: ".example.com", ExpiresAt: &exp},
		},
		Storage:          storageprobe.Summary{LocalStorageKeyCount: 4, IndexedDBPresent: true},
		CookiesSet:       2,
		LocalStorageKeys: 4,
	}

	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, SaveResult(path, orig))

	got, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestLoadResultErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadResult(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestScoreScenario walks the documented reference page through the
// aggregation and scoring pipeline without a browser: root example.com,
// one tracker script from ads.example-cdn.com, two cookies (one
// first-party persistent, one third-party session).
func TestScoreScenario(t *testing.T) {
	t.Parallel()

	catalog := trackerSet{"example-cdn.com": true}
	i := netintercept.New("example.com", catalog, nil)
	i.HandleRequest(&network.EventRequestWillBeSent{
		RequestID: "1",
		Request:   &network.Request{URL: "https://example.com/"},
		Type:      network.ResourceTypeDocument,
	})
	i.HandleRequest(&network.EventRequestWillBeSent{
		RequestID: "2",
		Request:   &network.Request{URL: "https://ads.example-cdn.com/t.js"},
		Type:      network.ResourceTypeScript,
	})

	exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	result := &Result{Status: StatusCompleted}
	result.Cookies = []storageprobe.Cookie{
		{Name: "sid", Domain: "example.com", ExpiresAt: &exp},
		{Name: "_t", Domain: ".ads.example-cdn.com", IsThirdParty: true, IsSession: true},
	}

	result.Domains = i.Snapshot()
	_, _, thirdParty, trackers := i.Totals()
	result.ThirdPartyDomains = thirdParty
	result.TrackerDomains = trackers
	result.CookiesSet = len(result.Cookies)

	require.Equal(t, 1, result.ThirdPartyDomains)
	require.Equal(t, 1, result.TrackerDomains)
	require.Equal(t, 2, result.CookiesSet)

	s := score.Calculate(result.ScoreInput())
	assert.Equal(t, 92, s.Score)
}

type trackerSet map[string]bool

func (s trackerSet) Contains(d string) bool { return s[d] }

func TestScoreInput(t *testing.T) {
	t.Parallel()

	r := &Result{ThirdPartyDomains: 3, CookiesSet: 5, TrackerDomains: 1, LocalStorageKeys: 8}
	in := r.ScoreInput()
	assert.Equal(t, 3, in.ThirdPartyDomains)
	assert.Equal(t, 5, in.CookiesSet)
	assert.Equal(t, 1, in.TrackerDomains)
	assert.Equal(t, 8, in.LocalStorageKeys)
}
