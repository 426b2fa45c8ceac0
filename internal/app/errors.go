package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrNotSeated     = errors.New("player is not seated in this match")
	ErrBotSeat       = errors.New("bot seats cannot be driven through the service")
)
