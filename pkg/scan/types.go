// Package scan owns the browser session controller: it drives one Chrome
// context per invocation, wires the network interceptor, fingerprinting
// detector, and storage collector to the session's event stream, and
// assembles the raw observations into a scored Result.
package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/privacyscope/privacyscope/pkg/fingerprint"
	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/score"
	"github.com/privacyscope/privacyscope/pkg/storageprobe"
)

// Profile selects the scan's blocking behavior.
type Profile string

const (
	// ProfileBaseline observes without interfering.
	ProfileBaseline Profile = "baseline"

	// ProfileStrict blocks tracker requests, and optionally all
	// third-party requests outside an allowlist.
	ProfileStrict Profile = "strict"
)

// IsValid reports whether p is a known profile.
func (p Profile) IsValid() bool {
	return p == ProfileBaseline || p == ProfileStrict
}

// Status is the terminal disposition of a scan.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request describes one scan invocation. ScanID is minted by the caller
// (the engine never generates identifiers); it keys artifact handoff only.
type Request struct {
	ScanID  string
	URL     string
	Profile Profile

	// Strict carries the strict-profile blocking policy. Ignored for
	// baseline scans.
	Strict netintercept.StrictConfig
}

// Result is the root output of one engine run. It is created once per
// invocation and never mutated after Run returns; the caller owns it
// exclusively.
type Result struct {
	ScanID       string    `json:"scan_id"`
	URL          string    `json:"url"`
	FinalURL     string    `json:"final_url"`
	Status       Status    `json:"status"`
	PageTitle    string    `json:"page_title"`
	HTTPStatus   int       `json:"http_status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Profile      Profile   `json:"profile"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`

	// PrivacyScore is present only when Status is completed.
	PrivacyScore *int            `json:"privacy_score,omitempty"`
	Breakdown    score.Breakdown `json:"score_breakdown"`

	// Summary counters, derived from the aggregates at scan end.
	TotalRequests     int   `json:"total_requests"`
	TotalBytes        int64 `json:"total_bytes"`
	ThirdPartyDomains int   `json:"third_party_domains"`
	TrackerDomains    int   `json:"tracker_domains"`
	CookiesSet        int   `json:"cookies_set"`
	LocalStorageKeys  int   `json:"local_storage_keys"`

	Domains    []netintercept.DomainAggregate `json:"domains"`
	Cookies    []storageprobe.Cookie          `json:"cookies"`
	Storage    storageprobe.Summary           `json:"storage"`
	Detections []fingerprint.Detection        `json:"fingerprinting_detections"`
}

// ScoreInput derives the score calculator's input from the result's
// summary counters.
func (r *Result) ScoreInput() score.Input {
	return score.Input{
		ThirdPartyDomains: r.ThirdPartyDomains,
		CookiesSet:        r.CookiesSet,
		TrackerDomains:    r.TrackerDomains,
		LocalStorageKeys:  r.LocalStorageKeys,
	}
}

// SaveResult writes a result as indented JSON, the interchange format the
// compare and graph subcommands read back.
func SaveResult(path string, r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("scan: marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("scan: write result: %w", err)
	}
	return nil
}

// LoadResult reads a result previously written by SaveResult.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scan: read result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("scan: parse result %s: %w", path, err)
	}
	return &r, nil
}
