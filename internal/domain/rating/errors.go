package rating

import "errors"

// Sentinel kinds for rating configuration errors.
var (
	ErrInvalidConfig    = errors.New("invalid rating config")
	ErrUnknownAlgorithm = errors.New("unknown rating algorithm")
	ErrInvalidScore     = errors.New("match score must be 0, 0.5 or 1")
)
