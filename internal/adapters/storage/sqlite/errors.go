package sqlite

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound = errors.New("row not found")
	ErrConflict = errors.New("constraint violated")
)
