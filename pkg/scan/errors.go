package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds a scan can report. Wrap with
// fmt.Errorf("...: %w", ...) so errors.Is classification survives.
var (
	// ErrValidation marks a malformed URL that reached the engine. The
	// caller is supposed to validate first; this is defensive.
	ErrValidation = errors.New("validation error")

	// ErrNavigationTimeout marks a navigation that exceeded its deadline.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrNavigationFailure marks a DNS, TLS, or HTTP-level navigation
	// failure.
	ErrNavigationFailure = errors.New("navigation failure")

	// ErrScriptEvaluation marks an in-page probe or instrumentation
	// failure. Non-fatal: the affected sub-result is degraded and the
	// scan still completes.
	ErrScriptEvaluation = errors.New("script evaluation error")

	// ErrSessionAllocation marks a browser that could not be launched.
	// Fatal to the scan, not to the process.
	ErrSessionAllocation = errors.New("session allocation failure")

	// ErrInternal marks an unexpected engine fault.
	ErrInternal = errors.New("internal error")
)

// Kind names a failure class for reporting and metrics labels.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindNavigationTimeout Kind = "navigation_timeout"
	KindNavigationFailure Kind = "navigation_failure"
	KindScriptEvaluation  Kind = "script_evaluation_error"
	KindSessionAllocation Kind = "session_allocation_failure"
	KindInternal          Kind = "internal_error"
	KindNone              Kind = ""
)

// KindOf classifies err against the sentinel set. A bare context deadline
// counts as a navigation timeout since the scan deadline is the only
// deadline the engine runs under. Unrecognized errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNavigationTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindNavigationTimeout
	case errors.Is(err, ErrNavigationFailure):
		return KindNavigationFailure
	case errors.Is(err, ErrScriptEvaluation):
		return KindScriptEvaluation
	case errors.Is(err, ErrSessionAllocation):
		return KindSessionAllocation
	default:
		return KindInternal
	}
}

// classifyNavigationError maps a chromedp navigation error onto the
// sentinel set. Chrome surfaces network-stack failures as net:: error
// strings rather than typed errors.
func classifyNavigationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "net::") || strings.Contains(msg, "ERR_") {
		return fmt.Errorf("%w: %s", ErrNavigationFailure, msg)
	}
	return fmt.Errorf("%w: %v", ErrNavigationFailure, err)
}
