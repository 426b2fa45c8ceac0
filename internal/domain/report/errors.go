package report

import "errors"

var (
	// ErrNoRatingConfig is returned when a ranked match finishes without a
	// rating config source.
	ErrNoRatingConfig = errors.New("rating config unavailable")

	// ErrNoRatingStore is returned when a ranked match finishes without a
	// rating store.
	ErrNoRatingStore = errors.New("rating store unavailable")

	// ErrInvalidRating is returned when an update yields a record that
	// cannot be stored. Nothing is written in that case.
	ErrInvalidRating = errors.New("rating update produced an invalid record")
)
