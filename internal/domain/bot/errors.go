package bot

import "errors"

// Sentinel kinds for bot configuration errors.
var (
	ErrUnknownStrategy = errors.New("unknown bot strategy")
	ErrInvalidDepth    = errors.New("search depth must be between 1 and 9")
	ErrMissingID       = errors.New("bot id is required")
)
