// Package service wires the match engine, bots, observer, stores and
// persistence pipeline into the operations served by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fifteen/internal/adapters/mq/queue"
	"github.com/okian/fifteen/internal/adapters/mq/worker"
	"github.com/okian/fifteen/internal/adapters/notify"
	"github.com/okian/fifteen/internal/adapters/repository"
	"github.com/okian/fifteen/internal/config"
	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/dedupe"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/internal/domain/report"
	"github.com/okian/fifteen/internal/domain/types"
	"github.com/okian/fifteen/pkg/logger"
	"github.com/okian/fifteen/pkg/metrics"
	"golang.org/x/exp/rand"
)

const (
	stopTimeout = 30 * time.Second

	// retiredTTL bounds how long a finished match whose record never reached
	// history is kept for lookups.
	retiredTTL = time.Minute
)

// Service runs matches and serves ladder and history reads.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	seed   uint64
	newID  func() string
	logger logger.Logger

	// rngMu guards rng, which only seeds per-match and per-bot sources.
	rngMu sync.Mutex
	rng   *rand.Rand

	ladder   *repository.Ladder
	history  *repository.History
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	hub      *notify.Hub
	observer *report.Observer
	bots     map[string]*bot.Agent
	matches  map[string]*match.Match
	// retired holds finished matches until their record is persisted, so
	// late actions still see the match and get ErrFinished.
	retired map[string]retiredMatch

	// ctx outlives requests; bots and the observer act on it.
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New constructs a Service. It fails when the configured bot roster is
// invalid.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg:     config.New(context.Background()),
		seed:    uint64(time.Now().UnixNano()),
		newID:   uuid.NewString,
		matches: make(map[string]*match.Match),
		retired: make(map[string]retiredMatch),
		bots:    make(map[string]*bot.Agent),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, bc := range s.cfg.Bots.Roster {
		strategy, err := bot.NewStrategy(bc, s.childRand())
		if err != nil {
			return nil, fmt.Errorf("bot %q: %w", bc.ID, err)
		}
		s.bots[bc.ID] = bot.NewAgent(bc.ID, strategy,
			bot.WithThinkUnit(s.cfg.Bots.ThinkUnit()),
			bot.WithLogger(logger.Named("bot").With(logger.String("bot_id", bc.ID))),
		)
	}

	s.ladder = repository.NewLadder(repository.WithRand(s.childRand()))
	s.history = repository.NewHistory(repository.WithPerPlayerLimit(s.cfg.Pipeline.HistoryPerPlayer))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.Pipeline.QueueSize))
	s.hub = notify.NewHub()
	s.observer = report.NewObserver(
		report.WithRatingStore(s.ladder),
		report.WithRatingConfig(s.RatingConfig),
		report.WithSink(s.queue),
		report.WithNotifier(s.hub),
		report.WithIsBot(s.IsBot),
		report.WithLeader(s.leaderID),
		report.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.Pipeline.DedupeSize))),
	)
	return s, nil
}

// Start launches the persistence workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting match service...")

	s.pool = worker.NewPool(s.cfg.Pipeline.WorkerCount, s.queue, &archive{History: s.history, saved: s.release})
	s.pool.Start(s.ctx)
	s.started = true

	s.logger.Info(ctx, "match service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.cfg.Pipeline.QueueSize),
		logger.Int("bots", len(s.bots)),
	)
	return nil
}

// Stop drains pending match records and stops bots. Live matches are left
// to run out on their own clocks. A stopped service cannot be restarted.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool := s.pool
	s.mu.Unlock()

	// Bots finishing a match call back into the registry, so nothing below
	// may run under s.mu.
	ctx := context.Background()
	s.logger.Info(ctx, "stopping match service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "persistence did not drain", logger.Error(err))
	}
	s.cancel()
	for _, a := range s.bots {
		a.Wait()
	}

	s.logger.Info(ctx, "match service stopped",
		logger.Int("persisted", int(pool.Processed())),
	)
}

// RatingConfig returns the current rating config snapshot.
func (s *Service) RatingConfig() (rating.Config, error) {
	s.mu.RLock()
	cfg := s.cfg.Rating
	s.mu.RUnlock()
	if err := cfg.Validate(); err != nil {
		return rating.Config{}, err
	}
	return cfg, nil
}

// SetRatingConfig swaps the rating snapshot used from the next finish on.
func (s *Service) SetRatingConfig(cfg rating.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Rating = cfg
	s.mu.Unlock()
	return nil
}

// IsBot reports whether playerID belongs to a configured bot.
func (s *Service) IsBot(playerID string) bool {
	_, ok := s.bots[playerID]
	return ok
}

// Bots lists the configured bot roster.
func (s *Service) Bots() []bot.Config {
	out := make([]bot.Config, len(s.cfg.Bots.Roster))
	copy(out, s.cfg.Bots.Roster)
	return out
}

// CreateMatch seats orderID and chaosID and, unless the ready handshake is
// configured, starts the clock right away. Bot seats are played
// automatically.
func (s *Service) CreateMatch(ctx context.Context, orderID, chaosID string, mode game.Mode) (match.State, error) {
	opts := []match.Option{
		match.WithRand(s.childRand()),
		match.WithLogger(logger.Named("match")),
	}
	if s.cfg.Match.CumulativeClock {
		opts = append(opts, match.WithCumulativeClock())
	}
	m, err := match.New(s.newID(), orderID, chaosID, s.cfg.Match.TimeLimit(), mode, opts...)
	if err != nil {
		return match.State{}, err
	}

	s.observer.Attach(s.ctx, m)
	m.Subscribe(game.EventFinished, func(_ game.Event, st match.State) {
		s.retire(st.ID)
	})

	s.mu.Lock()
	s.matches[m.ID()] = m
	active := len(s.matches)
	s.mu.Unlock()
	metrics.UpdateActiveMatches(active)

	for _, team := range []game.Team{game.Order, game.Chaos} {
		agent, ok := s.bots[m.PlayerID(team)]
		if !ok {
			continue
		}
		p, err := m.Perspective(team)
		if err != nil {
			return match.State{}, err
		}
		agent.Play(s.ctx, p)
	}

	if !s.cfg.Match.RequireReady {
		if err := m.Start(); err != nil {
			return match.State{}, err
		}
	}

	s.logger.Info(ctx, "match created",
		logger.String("match_id", m.ID()),
		logger.String("order", orderID),
		logger.String("chaos", chaosID),
		logger.String("mode", string(mode)),
	)
	return m.State(), nil
}

// Match returns the state of a live match, or of a finished one whose record
// is not stored yet.
func (s *Service) Match(_ context.Context, matchID string) (match.State, error) {
	m, err := s.lookup(matchID)
	if err != nil {
		return match.State{}, err
	}
	return m.State(), nil
}

// Record returns the stored record of a finished match.
func (s *Service) Record(ctx context.Context, matchID string) (model.MatchRecord, error) {
	rec, err := s.history.Get(ctx, matchID)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: %w", ErrMatchNotFound, err)
	}
	return rec, nil
}

// Ready confirms playerID's seat.
func (s *Service) Ready(_ context.Context, matchID, playerID string) (match.State, error) {
	p, err := s.seat(matchID, playerID)
	if err != nil {
		return match.State{}, err
	}
	if err := p.Ready(); err != nil {
		return match.State{}, err
	}
	return p.State(), nil
}

// Pick submits playerID's digit.
func (s *Service) Pick(_ context.Context, matchID, playerID string, choice game.Choice) (match.State, error) {
	p, err := s.seat(matchID, playerID)
	if err != nil {
		return match.State{}, err
	}
	if err := p.Pick(choice); err != nil {
		return match.State{}, err
	}
	return p.State(), nil
}

// Surrender concedes playerID's match.
func (s *Service) Surrender(_ context.Context, matchID, playerID string) (match.State, error) {
	p, err := s.seat(matchID, playerID)
	if err != nil {
		return match.State{}, err
	}
	if err := p.Surrender(); err != nil {
		return match.State{}, err
	}
	return p.State(), nil
}

// Subscribe opens a push stream for playerID.
func (s *Service) Subscribe(playerID string) (<-chan model.Notification, func()) {
	return s.hub.Subscribe(playerID)
}

// TopN returns the best n rated players.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	engine, err := s.engine()
	if err != nil {
		return nil, err
	}
	rows, err := s.ladder.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	leader := s.leaderID()
	out := make([]types.Entry, len(rows))
	for i, r := range rows {
		out[i] = entryOf(engine, r, leader)
	}
	return out, nil
}

// Rank returns one player's ladder row.
func (s *Service) Rank(ctx context.Context, playerID string) (types.Entry, error) {
	engine, err := s.engine()
	if err != nil {
		return types.Entry{}, err
	}
	r, err := s.ladder.Rank(ctx, playerID)
	if err != nil {
		return types.Entry{}, err
	}
	return entryOf(engine, r, s.leaderID()), nil
}

// History returns playerID's most recent finished matches, newest first.
func (s *Service) History(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	return s.history.ListByPlayer(ctx, playerID, limit)
}

// LiveMatches returns the ids of running matches, sorted.
func (s *Service) LiveMatches() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	st := types.Stats{
		Started:       s.started,
		ActiveMatches: len(s.matches),
	}
	if s.pool != nil {
		st.WorkerCount = s.pool.Size()
	}
	s.mu.RUnlock()

	st.RatedPlayers = s.ladder.Count(ctx)
	st.StoredMatches = s.history.Count(ctx)
	st.PendingReports = s.queue.Len(ctx)
	st.ConnectedPushes = s.hub.Connected()
	return st
}

// WaitIdle blocks until no match is live or ctx ends. The simulation uses it
// to let bot matches play out.
func (s *Service) WaitIdle(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		s.mu.RLock()
		n := len(s.matches)
		s.mu.RUnlock()
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func (s *Service) lookup(matchID string) (*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.matches[matchID]; ok {
		return m, nil
	}
	if r, ok := s.retired[matchID]; ok {
		return r.m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
}

// seat resolves the perspective playerID may act through.
func (s *Service) seat(matchID, playerID string) (*match.Perspective, error) {
	m, err := s.lookup(matchID)
	if err != nil {
		return nil, err
	}
	if s.IsBot(playerID) {
		return nil, ErrBotSeat
	}
	for _, team := range []game.Team{game.Order, game.Chaos} {
		if m.PlayerID(team) == playerID {
			return m.Perspective(team)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotSeated, playerID)
}

type retiredMatch struct {
	m  *match.Match
	at time.Time
}

// retire moves a finished match out of the live set. It stays reachable
// until release, or until retiredTTL passes without a stored record. The
// record may already be stored when a fast worker beats this handler.
func (s *Service) retire(matchID string) {
	now := time.Now()
	s.mu.Lock()
	if m, ok := s.matches[matchID]; ok {
		delete(s.matches, matchID)
		if _, err := s.history.Get(s.ctx, matchID); err != nil {
			s.retired[matchID] = retiredMatch{m: m, at: now}
		}
	}
	for id, r := range s.retired {
		if now.Sub(r.at) > retiredTTL {
			delete(s.retired, id)
		}
	}
	active := len(s.matches)
	s.mu.Unlock()
	metrics.UpdateActiveMatches(active)
}

// release forgets a finished match once history serves its record.
func (s *Service) release(matchID string) {
	s.mu.Lock()
	delete(s.retired, matchID)
	s.mu.Unlock()
}

// archive is the history writer used by the workers. It releases the
// retired match after each successful save.
type archive struct {
	*repository.History
	saved func(matchID string)
}

func (a *archive) Save(ctx context.Context, rec model.MatchRecord) error { //nolint:gocritic // hugeParam: records are stored by value
	if err := a.History.Save(ctx, rec); err != nil {
		return err
	}
	a.saved(rec.MatchID)
	return nil
}

func (s *Service) engine() (rating.Engine, error) {
	cfg, err := s.RatingConfig()
	if err != nil {
		return nil, err
	}
	return rating.New(cfg)
}

// leaderID names the single highest-rated Master, the only Challenger
// candidate. Provisional and lower-league players are skipped.
func (s *Service) leaderID() string {
	engine, err := s.engine()
	if err != nil {
		return ""
	}
	e, ok := s.ladder.Leader(s.ctx, func(r rating.Record) bool {
		return engine.Present(r).League == rating.Master
	})
	if !ok {
		return ""
	}
	return e.PlayerID
}

func (s *Service) childRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Uint64()))
}

func entryOf(e rating.Engine, r repository.Entry, leader string) types.Entry {
	return types.Entry{
		Rank:         r.Rank,
		PlayerID:     r.PlayerID,
		Score:        r.Record.Score,
		Matches:      r.Record.Matches,
		Presentation: rating.Promote(e.Present(r.Record), r.PlayerID == leader),
	}
}
