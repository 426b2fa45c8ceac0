package game

import "errors"

// Sentinel kinds for parsing errors.
var (
	ErrUnknownTeam = errors.New("unknown team")
	ErrUnknownMode = errors.New("unknown game mode")
)
