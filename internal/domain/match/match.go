// Package match implements the turn-based state machine of one game.
//
// A Match owns both sides' picks and clocks. Every mutation (pick,
// surrender, readiness, clock expiry) is serialized by one mutex per match,
// and every accepted mutation is published to subscribers on the same
// timeline. Different matches share nothing and run in parallel.
package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/timer"
	"github.com/okian/fifteen/pkg/logger"
	"github.com/okian/fifteen/pkg/metrics"
	"golang.org/x/exp/rand"
)

type side struct {
	player      string
	choices     []game.Choice
	set         game.Set
	clock       *timer.Timer
	surrendered bool
	ready       bool
}

// Match is one game between an Order seat and a Chaos seat.
type Match struct {
	mu sync.Mutex

	id         string
	mode       game.Mode
	limit      time.Duration
	cumulative bool
	sides      map[game.Team]*side

	phase      Phase
	turn       game.Team
	starter    game.Team
	winner     game.Team
	events     []game.Event
	startedAt  time.Time
	finishedAt time.Time

	firstMover game.Team
	rng        *rand.Rand
	now        func() time.Time
	log        logger.Logger
	subs       *emitter
}

// New creates a match in the NotStarted phase. Each side gets limit to think,
// per turn unless WithCumulativeClock is given.
func New(id, orderPlayer, chaosPlayer string, limit time.Duration, mode game.Mode, opts ...Option) (*Match, error) {
	if orderPlayer == "" || chaosPlayer == "" || orderPlayer == chaosPlayer {
		return nil, ErrInvalidPlayers
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if mode != game.Casual && mode != game.Ranked {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownMode, mode)
	}

	m := &Match{
		id:    id,
		mode:  mode,
		limit: limit,
		phase: NotStarted,
		now:   time.Now,
		subs:  newEmitter(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if m.log == nil {
		m.log = logger.Named("match")
	}
	m.log = m.log.With(logger.String("match_id", id))

	m.sides = map[game.Team]*side{
		game.Order: {player: orderPlayer},
		game.Chaos: {player: chaosPlayer},
	}
	for _, t := range game.Teams {
		m.sides[t].clock = timer.New(limit, func() { m.expire(t) }, timer.WithClock(m.now))
	}
	return m, nil
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Mode returns whether the match is casual or ranked.
func (m *Match) Mode() game.Mode { return m.mode }

// PlayerID returns the player seated on team, or "" for an invalid team.
func (m *Match) PlayerID(team game.Team) string {
	if s, ok := m.sides[team]; ok {
		return s.player
	}
	return ""
}

// Subscribe registers h for events of kind. The returned func removes it.
func (m *Match) Subscribe(kind game.EventKind, h Handler) (cancel func()) {
	return m.subs.subscribe(kind, h)
}

// Ready marks team as ready. The match starts once both seats are ready.
// Calling it on a running match is a no-op.
func (m *Match) Ready(team game.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sides[team]
	if !ok {
		return ErrInvalidTeam
	}
	switch m.phase {
	case Finished:
		return ErrFinished
	case InProgress:
		return nil
	}
	s.ready = true
	if m.sides[game.Order].ready && m.sides[game.Chaos].ready {
		m.beginLocked()
	}
	return nil
}

// Start marks both seats ready and begins play. It is for callers that do
// not run a readiness handshake.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case Finished:
		return ErrFinished
	case InProgress:
		return nil
	}
	for _, s := range m.sides {
		s.ready = true
	}
	m.beginLocked()
	return nil
}

// Pick plays choice for team. A rejected pick changes nothing and may be
// retried with corrected input.
func (m *Match) Pick(team game.Team, choice game.Choice) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if err != nil {
			metrics.RecordPickRejected(Reason(err))
		}
	}()

	s, ok := m.sides[team]
	switch {
	case !ok:
		return ErrInvalidTeam
	case m.phase == NotStarted:
		return ErrNotStarted
	case m.phase == Finished:
		return ErrFinished
	case m.turn != team:
		return ErrNotYourTurn
	case !choice.Valid():
		return ErrChoiceOutOfRange
	case m.usedLocked().Has(choice):
		return ErrChoiceTaken
	}

	// Once paused the clock cannot fire any more; if it already has, the
	// pending expiry owns the outcome.
	s.clock.Pause()
	if s.clock.Expired() {
		return ErrTimeExpired
	}

	s.choices = append(s.choices, choice)
	s.set = s.set.With(choice)
	ev := game.Event{Kind: game.EventChoice, Team: team, Choice: choice, OffsetMS: m.offsetLocked()}
	m.events = append(m.events, ev)
	metrics.RecordPickAccepted()

	switch {
	case s.set.Wins():
		m.closeLocked(team)
	case m.usedLocked().Len() == game.Digits:
		m.closeLocked(game.NoTeam)
	default:
		m.turn = team.Opponent()
		m.startClockLocked(m.turn)
	}

	st := m.stateLocked()
	m.subs.emit(ev, st)
	if m.phase == Finished {
		m.finishedLocked()
	}
	return nil
}

// Surrender ends the match with the opponent of team as winner.
func (m *Match) Surrender(team game.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sides[team]
	if !ok {
		return ErrInvalidTeam
	}
	if m.phase == Finished {
		return ErrFinished
	}
	s.surrendered = true
	ev := game.Event{Kind: game.EventForfeit, Team: team, OffsetMS: m.offsetLocked()}
	m.events = append(m.events, ev)
	m.closeLocked(team.Opponent())

	m.subs.emit(ev, m.stateLocked())
	m.finishedLocked()
	return nil
}

// FinalScore returns 1, 0 or 0.5 for team once the match is finished.
func (m *Match) FinalScore(team game.Team) (float64, error) {
	st := m.State()
	if !team.Valid() {
		return 0, ErrInvalidTeam
	}
	score, ok := st.FinalScore(team)
	if !ok {
		return 0, ErrNotFinished
	}
	return score, nil
}

// State returns a snapshot of the match.
func (m *Match) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Perspective returns the capability view for one seat.
func (m *Match) Perspective(team game.Team) (*Perspective, error) {
	if !team.Valid() {
		return nil, ErrInvalidTeam
	}
	return &Perspective{m: m, team: team}, nil
}

// expire runs when team's clock reaches zero.
func (m *Match) expire(team game.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != InProgress || m.turn != team {
		return
	}
	ev := game.Event{Kind: game.EventTimeout, Team: team, OffsetMS: m.offsetLocked()}
	m.events = append(m.events, ev)
	m.closeLocked(team.Opponent())

	m.subs.emit(ev, m.stateLocked())
	m.finishedLocked()
}

func (m *Match) beginLocked() {
	m.phase = InProgress
	m.startedAt = m.now()
	m.starter = m.firstMover
	if !m.starter.Valid() {
		m.starter = game.Teams[m.rng.Intn(len(game.Teams))]
	}
	m.turn = m.starter
	m.startClockLocked(m.turn)

	metrics.RecordMatchStarted(string(m.mode))
	m.log.Info(context.Background(), "match started",
		logger.String("starter", m.starter.String()),
		logger.String("order", m.sides[game.Order].player),
		logger.String("chaos", m.sides[game.Chaos].player),
	)
	m.subs.emit(game.Event{Kind: game.EventStarted, Team: m.starter}, m.stateLocked())
}

func (m *Match) startClockLocked(team game.Team) {
	c := m.sides[team].clock
	if !m.cumulative {
		c.SetRemaining(m.limit)
	}
	c.Start()
}

// closeLocked moves the match to Finished. Subscribers are told by the caller.
func (m *Match) closeLocked(winner game.Team) {
	for _, s := range m.sides {
		s.clock.Pause()
	}
	if m.startedAt.IsZero() {
		m.startedAt = m.now()
	}
	m.phase = Finished
	m.turn = game.NoTeam
	m.winner = winner
	m.finishedAt = m.now()
}

// finishedLocked publishes the Finished event.
func (m *Match) finishedLocked() {
	st := m.stateLocked()
	metrics.RecordMatchFinished(string(m.mode), st.Outcome())
	m.log.Info(context.Background(), "match finished",
		logger.String("winner", m.winner.String()),
		logger.String("outcome", st.Outcome()),
		logger.Int("picks", len(m.sides[game.Order].choices)+len(m.sides[game.Chaos].choices)),
	)
	m.subs.emit(game.Event{
		Kind:     game.EventFinished,
		Winner:   m.winner,
		OffsetMS: m.offsetLocked(),
	}, st)
}

func (m *Match) usedLocked() game.Set {
	return m.sides[game.Order].set | m.sides[game.Chaos].set
}

func (m *Match) offsetLocked() int64 {
	if m.startedAt.IsZero() {
		return 0
	}
	return m.now().Sub(m.startedAt).Milliseconds()
}

func (m *Match) stateLocked() State {
	view := func(s *side) SideState {
		return SideState{
			PlayerID:    s.player,
			Choices:     append([]game.Choice(nil), s.choices...),
			RemainingMS: s.clock.Remaining().Milliseconds(),
			Surrendered: s.surrendered,
			Ready:       s.ready,
		}
	}
	return State{
		ID:         m.id,
		Mode:       m.mode,
		Phase:      m.phase,
		Turn:       m.turn,
		Starter:    m.starter,
		Winner:     m.winner,
		Finished:   m.phase == Finished,
		Order:      view(m.sides[game.Order]),
		Chaos:      view(m.sides[game.Chaos]),
		Events:     append([]game.Event(nil), m.events...),
		StartedAt:  m.startedAt,
		FinishedAt: m.finishedAt,
	}
}
