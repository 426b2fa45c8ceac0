package report

import (
	"time"

	"github.com/okian/fifteen/internal/domain/dedupe"
	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/pkg/logger"
)

// Option configures an Observer.
type Option func(*Observer)

// WithRatingStore sets where rating records are read and written.
func WithRatingStore(s RatingStore) Option {
	return func(o *Observer) { o.ratings = s }
}

// WithRatingConfig sets the source of the rating config snapshot read once
// per ranked finish.
func WithRatingConfig(src ConfigSource) Option {
	return func(o *Observer) { o.config = src }
}

// WithStaticRatingConfig is WithRatingConfig for a fixed snapshot.
func WithStaticRatingConfig(cfg rating.Config) Option {
	return WithRatingConfig(func() (rating.Config, error) { return cfg, nil })
}

// WithSink sets where finished match records go.
func WithSink(s Sink) Option {
	return func(o *Observer) { o.sink = s }
}

// WithNotifier sets the push channel to human players.
func WithNotifier(n Notifier) Option {
	return func(o *Observer) { o.notifier = n }
}

// WithIsBot marks player ids that never get pushes.
func WithIsBot(fn func(playerID string) bool) Option {
	return func(o *Observer) {
		if fn != nil {
			o.isBot = fn
		}
	}
}

// WithLeader tells the observer who currently tops the ladder, for the
// Challenger display. It returns "" when there is no single leader.
func WithLeader(fn func() string) Option {
	return func(o *Observer) { o.leader = fn }
}

// WithDeduper replaces the default finish deduplication set.
func WithDeduper(d dedupe.Deduper) Option {
	return func(o *Observer) {
		if d != nil {
			o.seen = d
		}
	}
}

// WithLogger sets the observer logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Observer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides the time stamped on rating records.
func WithClock(now func() time.Time) Option {
	return func(o *Observer) {
		if now != nil {
			o.now = now
		}
	}
}
