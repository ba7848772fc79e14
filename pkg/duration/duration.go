// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ScanTotal)
//	if elapsed > duration.SettleGrace {
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// SCAN LIFECYCLE TIMEOUTS
// ============================================================================
//
// Use these to bound a single scan invocation and its phases.
// ============================================================================

const (
	// ScanTotal bounds one full scan invocation end to end (90s)
	ScanTotal = 90 * time.Second

	// Navigation bounds the initial page navigation (30s)
	Navigation = 30 * time.Second

	// SettleGrace is the network-idle window before the page counts as
	// settled (2s)
	SettleGrace = 2 * time.Second

	// SettleMax caps how long we wait for the page to settle even if the
	// network never goes idle (15s)
	SettleMax = 15 * time.Second

	// Probe bounds a single in-page JavaScript evaluation (5s)
	Probe = 5 * time.Second
)

// ============================================================================
// BROWSER PROCESS MANAGEMENT
// ============================================================================

const (
	// TeardownKill is the grace window for browser context cancellation
	// before the Chrome process tree is force-killed (5s)
	TeardownKill = 5 * time.Second

	// SettlePoll is the interval at which in-flight request counts are
	// sampled while waiting for the page to settle (250ms)
	SettlePoll = 250 * time.Millisecond
)

// ============================================================================
// CLI / BATCH PACING
// ============================================================================

const (
	// ScanSpacing is the minimum delay between scans when running a URL
	// list (1s)
	ScanSpacing = 1 * time.Second

	// MetricsShutdown bounds the metrics HTTP server shutdown (5s)
	MetricsShutdown = 5 * time.Second
)
