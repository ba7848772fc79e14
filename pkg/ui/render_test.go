package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/privacyscope/privacyscope/pkg/compare"
	"github.com/privacyscope/privacyscope/pkg/fingerprint"
	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/scan"
	"github.com/privacyscope/privacyscope/pkg/score"
)

func TestRenderResultCompleted(t *testing.T) {
	t.Parallel()

	s := 72
	r := &scan.Result{
		URL:          "https://example.com",
		FinalURL:     "https://www.example.com/",
		Status:       scan.StatusCompleted,
		PageTitle:    "Example",
		HTTPStatus:   200,
		Profile:      scan.ProfileBaseline,
		PrivacyScore: &s,
		Breakdown:    score.Breakdown{ThirdParty: 8, Cookies: 10, Trackers: 8, LocalStorage: 2, Total: 28},
		StartedAt:    time.Now(),
		FinishedAt:   time.Now().Add(12 * time.Second),
		Domains: []netintercept.DomainAggregate{
			{Domain: "example.com", RequestCount: 20},
			{Domain: "doubleclick.net", IsThirdParty: true, IsTracker: true, RequestCount: 2},
		},
		TotalRequests:     22,
		ThirdPartyDomains: 1,
		TrackerDomains:    1,
		CookiesSet:        10,
		LocalStorageKeys:  4,
		Detections: []fingerprint.Detection{{
			Technique: fingerprint.TechniqueCanvas,
			Domain:    "doubleclick.net",
			Severity:  fingerprint.SeverityHigh,
			Evidence:  fingerprint.Evidence{Description: "Canvas fingerprinting", TotalMatches: 6},
		}},
	}

	out := RenderResult(r)
	for _, want := range []string{"72/100", "doubleclick.net", "[tracker]", "canvas", "grade C"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderResult output missing %q", want)
		}
	}
}

func TestRenderResultFailed(t *testing.T) {
	t.Parallel()

	r := &scan.Result{
		URL:          "https://down.example",
		Status:       scan.StatusFailed,
		ErrorMessage: "navigation_failure: net::ERR_NAME_NOT_RESOLVED",
		Domains:      []netintercept.DomainAggregate{{Domain: "down.example"}},
	}
	out := RenderResult(r)
	if !strings.Contains(out, "scan failed") {
		t.Error("failed render missing failure banner")
	}
	if !strings.Contains(out, "partial capture") {
		t.Error("failed render should mention partial aggregates")
	}
}

func TestRenderComparison(t *testing.T) {
	t.Parallel()

	c := &compare.Result{
		AURL: "https://example.com", AProfile: scan.ProfileBaseline,
		BURL: "https://example.com", BProfile: scan.ProfileStrict,
		ScoreDelta:          24,
		ByteDelta:           -2 << 20,
		DomainsRemoved:      []string{"doubleclick.net"},
		CookiesRemovedCount: 3,
	}
	out := RenderComparison(c)
	for _, want := range []string{"+24", "doubleclick.net", "-2.0 MB", "-3"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderComparison output missing %q", want)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
