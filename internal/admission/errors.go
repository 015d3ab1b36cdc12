package admission

import "errors"

// Sentinel kinds for admission errors. All are caller/state mismatches
// reported verbatim, except ErrTransient which signals a retryable storage
// failure after internal retries were exhausted.
var (
	ErrCapacityPolicy    = errors.New("event not accepting rsvps")
	ErrDuplicateRSVP     = errors.New("active rsvp already exists")
	ErrInvalidTransition = errors.New("invalid rsvp transition")
	ErrCheckInWindow     = errors.New("outside check-in window")
	ErrNotFound          = errors.New("not found")
	ErrTransient         = errors.New("transient storage failure")
)
