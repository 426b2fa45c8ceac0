package match

import (
	"time"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/pkg/logger"
	"golang.org/x/exp/rand"
)

// Option configures a Match.
type Option func(*Match)

// WithRand sets the source used to draw the first mover.
func WithRand(r *rand.Rand) Option {
	return func(m *Match) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithFirstMover fixes the side that moves first instead of drawing it.
func WithFirstMover(t game.Team) Option {
	return func(m *Match) {
		if t.Valid() {
			m.firstMover = t
		}
	}
}

// WithClock overrides the wall clock for event offsets and player timers.
func WithClock(now func() time.Time) Option {
	return func(m *Match) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCumulativeClock gives each side one budget for the whole match, paused
// while the opponent thinks. By default the clock is reset to the limit at
// the start of every turn.
func WithCumulativeClock() Option {
	return func(m *Match) {
		m.cumulative = true
	}
}

// WithLogger sets the logger used for lifecycle records.
func WithLogger(l logger.Logger) Option {
	return func(m *Match) {
		if l != nil {
			m.log = l
		}
	}
}
