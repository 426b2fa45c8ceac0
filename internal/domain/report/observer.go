// Package report turns match timelines into side effects: state pushes while
// a match runs, then one rating update, one history record and one final
// report when it finishes. It holds no game rules of its own.
package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/fifteen/internal/domain/dedupe"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/pkg/logger"
	"github.com/okian/fifteen/pkg/metrics"
)

// RatingStore reads and writes rating records by player. Delete is only
// used to undo a half-written update for a first-time player.
type RatingStore interface {
	Get(ctx context.Context, playerID string) (rating.Record, bool, error)
	Put(ctx context.Context, playerID string, r rating.Record) error
	Delete(ctx context.Context, playerID string) error
}

// ConfigSource returns the current rating config snapshot.
type ConfigSource func() (rating.Config, error)

// Sink accepts finished match records for persistence.
type Sink interface {
	Enqueue(ctx context.Context, r model.MatchRecord) error
}

// Notifier pushes to one player.
type Notifier interface {
	Push(ctx context.Context, playerID string, n model.Notification) error
}

// Observer reports on every match it is attached to.
type Observer struct {
	ratings  RatingStore
	config   ConfigSource
	sink     Sink
	notifier Notifier
	isBot    func(string) bool
	leader   func() string
	seen     dedupe.Deduper
	log      logger.Logger
	now      func() time.Time

	// rateMu serializes rating read-modify-write across matches that share
	// a player.
	rateMu sync.Mutex
}

// NewObserver creates an observer. Missing collaborators disable the matching
// side effect.
func NewObserver(opts ...Option) *Observer {
	o := &Observer{
		isBot: func(string) bool { return false },
		log:   logger.Named("report"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.seen == nil {
		o.seen = dedupe.NewInMemoryDeduper()
	}
	return o
}

// Attach subscribes the observer to m. Subscriptions end by themselves once
// the match finishes; detach ends them earlier.
func (o *Observer) Attach(ctx context.Context, m *match.Match) (detach func()) {
	var (
		mu      sync.Mutex
		cancels []func()
	)
	detach = func() {
		mu.Lock()
		cs := cancels
		cancels = nil
		mu.Unlock()
		for _, cancel := range cs {
			cancel()
		}
	}

	push := func(ev game.Event, st match.State) {
		o.push(ctx, st, model.Notification{Kind: model.NotifyState, MatchID: st.ID, Event: &ev, State: &st})
	}

	mu.Lock()
	defer mu.Unlock()
	for _, kind := range []game.EventKind{game.EventStarted, game.EventChoice, game.EventForfeit, game.EventTimeout} {
		cancels = append(cancels, m.Subscribe(kind, push))
	}
	cancels = append(cancels, m.Subscribe(game.EventFinished, func(_ game.Event, st match.State) {
		o.Finish(ctx, st)
		detach()
	}))
	return detach
}

// Finish reports a finished match. It returns false without side effects
// for an unfinished state or a match id that was already reported.
func (o *Observer) Finish(ctx context.Context, st match.State) (model.MatchRecord, bool) { //nolint:gocritic // hugeParam: state snapshots travel by value
	if !st.Finished {
		return model.MatchRecord{}, false
	}
	if o.seen.SeenAndRecord(ctx, st.ID) {
		o.log.Debug(ctx, "duplicate finish ignored", logger.String("match_id", st.ID))
		return model.MatchRecord{}, false
	}

	rec := o.record(st)
	if st.Mode == game.Ranked {
		if err := o.rate(ctx, &rec); err != nil {
			metrics.RecordRatingError(ratingReason(err))
			metrics.RecordErrorByComponent("report", "rating")
			o.log.Error(ctx, "ranked match persisted unrated",
				logger.String("match_id", rec.MatchID),
				logger.Error(err),
			)
			rec.Order.Unrate()
			rec.Chaos.Unrate()
			o.present(ctx, &rec)
		}
	} else {
		o.present(ctx, &rec)
	}

	if o.sink != nil {
		if err := o.sink.Enqueue(ctx, rec); err != nil {
			o.log.Error(ctx, "match record not queued",
				logger.String("match_id", rec.MatchID),
				logger.Error(err),
			)
		}
	}

	rep := model.ReportOf(&rec)
	o.push(ctx, st, model.Notification{Kind: model.NotifyReport, MatchID: rec.MatchID, Report: &rep})

	o.log.Info(ctx, "match reported",
		logger.String("match_id", rec.MatchID),
		logger.String("outcome", rec.Outcome),
		logger.Bool("rated", rec.Rated),
	)
	return rec, true
}

func (o *Observer) record(st match.State) model.MatchRecord { //nolint:gocritic // hugeParam
	rec := model.MatchRecord{
		MatchID:    st.ID,
		Mode:       st.Mode,
		Winner:     st.Winner,
		Outcome:    st.Outcome(),
		Starter:    st.Starter,
		Events:     slices.Clone(st.Events),
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
	}
	for _, t := range []game.Team{game.Order, game.Chaos} {
		view := st.Side(t)
		s := rec.Side(t)
		s.Team = t
		s.PlayerID = view.PlayerID
		s.Bot = o.isBot(view.PlayerID)
		s.Choices = slices.Clone(view.Choices)
		s.Score, _ = st.FinalScore(t)
	}
	return rec
}

func (o *Observer) engine() (rating.Engine, error) {
	if o.config == nil {
		return nil, ErrNoRatingConfig
	}
	cfg, err := o.config()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRatingConfig, err)
	}
	e, err := rating.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRatingConfig, err)
	}
	return e, nil
}

// rate updates both players and fills the rating fields of rec.
func (o *Observer) rate(ctx context.Context, rec *model.MatchRecord) error {
	e, err := o.engine()
	if err != nil {
		return err
	}
	if o.ratings == nil {
		return ErrNoRatingStore
	}
	if err := rating.CheckScore(rec.Order.Score); err != nil {
		return err
	}

	o.rateMu.Lock()
	defer o.rateMu.Unlock()

	now := o.now()
	sides := []*model.SideRecord{&rec.Order, &rec.Chaos}
	known := make([]bool, len(sides))
	for i, s := range sides {
		r, ok, err := o.ratings.Get(ctx, s.PlayerID)
		if err != nil {
			return fmt.Errorf("load rating of %s: %w", s.PlayerID, err)
		}
		if !ok {
			r = e.NewRecord(now)
		}
		s.RatingBefore, known[i] = r, ok
	}

	rec.Order.RatingAfter, rec.Chaos.RatingAfter = e.Update(rec.Order.RatingBefore, rec.Chaos.RatingBefore, rec.Order.Score, now)
	for _, s := range sides {
		if !s.RatingAfter.Valid() {
			return fmt.Errorf("%w: player %s", ErrInvalidRating, s.PlayerID)
		}
	}
	for i, s := range sides {
		if err := o.ratings.Put(ctx, s.PlayerID, s.RatingAfter); err != nil {
			o.undo(ctx, sides[:i], known[:i])
			return fmt.Errorf("store rating of %s: %w", s.PlayerID, err)
		}
	}

	leader := o.leaderID()
	for _, s := range sides {
		s.LPDelta = e.LP(s.RatingAfter) - e.LP(s.RatingBefore)
		s.Presentation = rating.Promote(e.Present(s.RatingAfter), s.PlayerID == leader)
	}
	rec.Rated = true
	metrics.RecordRatingUpdate()
	return nil
}

// undo restores the records of sides already written by a failed update.
// Players seen for the first time are removed again.
func (o *Observer) undo(ctx context.Context, sides []*model.SideRecord, known []bool) {
	for i, s := range sides {
		var err error
		if known[i] {
			err = o.ratings.Put(ctx, s.PlayerID, s.RatingBefore)
		} else {
			err = o.ratings.Delete(ctx, s.PlayerID)
		}
		if err != nil {
			o.log.Error(ctx, "rating rollback failed",
				logger.String("player_id", s.PlayerID),
				logger.Error(err),
			)
		}
	}
}

// present shows the unchanged standing of rated players. Players without a
// stored rating, or without an engine to present it, show as Provisional.
func (o *Observer) present(ctx context.Context, rec *model.MatchRecord) {
	sides := []*model.SideRecord{&rec.Order, &rec.Chaos}
	for _, s := range sides {
		s.Presentation = rating.Presentation{League: rating.Provisional}
	}
	if o.ratings == nil || o.config == nil {
		return
	}
	e, err := o.engine()
	if err != nil {
		o.log.Debug(ctx, "match without presentation", logger.Error(err))
		return
	}
	leader := o.leaderID()
	for _, s := range sides {
		r, ok, err := o.ratings.Get(ctx, s.PlayerID)
		if err != nil {
			continue
		}
		if !ok {
			s.Presentation = e.Present(e.NewRecord(o.now()))
			continue
		}
		s.RatingBefore, s.RatingAfter = r, r
		s.Presentation = rating.Promote(e.Present(r), s.PlayerID == leader)
	}
}

func (o *Observer) leaderID() string {
	if o.leader == nil {
		return ""
	}
	return o.leader()
}

// push delivers n to the human seats of st.
func (o *Observer) push(ctx context.Context, st match.State, n model.Notification) { //nolint:gocritic // hugeParam
	if o.notifier == nil {
		return
	}
	for _, t := range []game.Team{game.Order, game.Chaos} {
		id := st.Side(t).PlayerID
		if id == "" || o.isBot(id) {
			continue
		}
		if err := o.notifier.Push(ctx, id, n); err != nil {
			o.log.Warn(ctx, "push failed",
				logger.String("player_id", id),
				logger.String("match_id", st.ID),
				logger.Error(err),
			)
		}
	}
}

func ratingReason(err error) string {
	switch {
	case errors.Is(err, ErrNoRatingConfig):
		return "config"
	case errors.Is(err, rating.ErrInvalidScore):
		return "score"
	case errors.Is(err, ErrInvalidRating):
		return "invalid"
	}
	return "store"
}
