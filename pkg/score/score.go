// Package score computes the 0-100 privacy score of a completed scan from
// its aggregate counters. The calculation is pure integer arithmetic: the
// same input always yields the same result, and no field of the input is
// read twice, so callers may pass their live aggregates without copying.
package score

// Input carries the four counters the score is derived from.
type Input struct {
	// ThirdPartyDomains is the number of distinct third-party registrable
	// domains contacted during the scan.
	ThirdPartyDomains int

	// CookiesSet is the total number of cookies present after settle.
	CookiesSet int

	// TrackerDomains is the number of distinct contacted domains that
	// matched the tracker catalog.
	TrackerDomains int

	// LocalStorageKeys is the number of localStorage keys present after
	// settle.
	LocalStorageKeys int
}

// Penalty caps. Each factor's contribution saturates so a single noisy
// dimension cannot zero the score on its own.
const (
	perThirdParty   = 2
	maxThirdParty   = 40
	perCookie       = 1
	maxCookies      = 20
	perTracker      = 4
	maxTrackers     = 25
	maxLocalStorage = 10
)

// Breakdown itemizes the deduction each factor contributed. Every value is
// already capped; Total is their plain sum.
type Breakdown struct {
	ThirdParty   int `json:"third_party"`
	Cookies      int `json:"cookies"`
	Trackers     int `json:"trackers"`
	LocalStorage int `json:"local_storage"`
	Total        int `json:"total"`
}

// Result is the final score plus its breakdown. Score is always in
// [0, 100] and equals 100 - Breakdown.Total.
type Result struct {
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Calculate applies the capped deductions to the input counters. Negative
// counters are treated as zero; they indicate a caller bug, not a page
// behavior, and must not inflate the score above 100.
func Calculate(in Input) Result {
	b := Breakdown{
		ThirdParty:   capped(clampNonNeg(in.ThirdPartyDomains)*perThirdParty, maxThirdParty),
		Cookies:      capped(clampNonNeg(in.CookiesSet)*perCookie, maxCookies),
		Trackers:     capped(clampNonNeg(in.TrackerDomains)*perTracker, maxTrackers),
		LocalStorage: capped(clampNonNeg(in.LocalStorageKeys)/2, maxLocalStorage),
	}
	b.Total = b.ThirdParty + b.Cookies + b.Trackers + b.LocalStorage

	s := 100 - b.Total
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return Result{Score: s, Breakdown: b}
}

// Grade buckets a score for display: 90+ "A", 75+ "B", 60+ "C", 40+ "D",
// otherwise "F".
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

func capped(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func clampNonNeg(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
