// Package repository holds the in-memory stores behind the service: the
// rating ladder and the match history.
package repository

import "golang.org/x/exp/rand"

// Option applies a configuration option to the Ladder.
type Option func(*Ladder)

// WithRand sets the source of treap priorities.
func WithRand(r *rand.Rand) Option {
	return func(l *Ladder) {
		if r != nil {
			l.rng = r
		}
	}
}

// HistoryOption applies a configuration option to the History.
type HistoryOption func(*History)

// WithPerPlayerLimit caps how many matches are indexed per player; the
// oldest fall out of the player's list first. Zero keeps everything.
func WithPerPlayerLimit(n int) HistoryOption {
	return func(h *History) {
		if n >= 0 {
			h.perPlayer = n
		}
	}
}
