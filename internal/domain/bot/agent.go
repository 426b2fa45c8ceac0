package bot

import (
	"context"
	"sync"
	"time"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/pkg/logger"
	"github.com/okian/fifteen/pkg/metrics"
)

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithThinkUnit sets the base of the artificial thinking delay. Zero makes
// the agent answer immediately.
func WithThinkUnit(d time.Duration) AgentOption {
	return func(a *Agent) {
		if d >= 0 {
			a.unit = d
		}
	}
}

// WithLogger sets the agent's logger.
func WithLogger(l logger.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

// Agent plays a Strategy through match perspectives. One agent may sit in
// several matches at once.
type Agent struct {
	id       string
	strategy Strategy
	unit     time.Duration
	log      logger.Logger
	wg       sync.WaitGroup
}

// NewAgent returns an agent identified as id.
func NewAgent(id string, s Strategy, opts ...AgentOption) *Agent {
	a := &Agent{
		id:       id,
		strategy: s,
		unit:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Named("bot")
	}
	a.log = a.log.With(logger.String("bot_id", id), logger.String("strategy", s.Name()))
	return a
}

// ID returns the bot's player id.
func (a *Agent) ID() string { return a.id }

// Strategy returns the decision policy.
func (a *Agent) Strategy() Strategy { return a.strategy }

// ThinkDelay is the pause before a bot answers: longer for deeper searches
// and while more of the board is open.
func ThinkDelay(made, depth int, unit time.Duration) time.Duration {
	if unit <= 0 {
		return 0
	}
	open := game.Digits - made
	if open < 0 {
		open = 0
	}
	return unit + unit*time.Duration(depth*open)/game.Digits
}

// Play sits the agent on p: it marks the seat ready and answers every turn
// of p's team until the match finishes or ctx ends. It returns a func that
// stops listening.
func (a *Agent) Play(ctx context.Context, p *match.Perspective) (detach func()) {
	var (
		mu   sync.Mutex
		last = -1
	)
	onTurn := func(_ game.Event, st match.State) {
		if st.Finished || st.Turn != p.Team() {
			return
		}
		made := len(st.Order.Choices) + len(st.Chaos.Choices)
		mu.Lock()
		if made <= last {
			mu.Unlock()
			return
		}
		last = made
		mu.Unlock()

		a.wg.Add(1)
		go a.move(ctx, p, st)
	}

	var (
		cancels []func()
		once    sync.Once
	)
	detach = func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range cancels {
				c()
			}
		})
	}
	mu.Lock()
	cancels = append(cancels,
		p.Subscribe(game.EventStarted, onTurn),
		p.Subscribe(game.EventChoice, onTurn),
		p.Subscribe(game.EventFinished, func(game.Event, match.State) { detach() }),
	)
	mu.Unlock()

	if err := p.Ready(); err != nil {
		a.log.Debug(ctx, "seat not ready", logger.String("match_id", p.MatchID()), logger.Error(err))
	}
	// The match may have started before we subscribed.
	if st := p.State(); st.Phase == match.InProgress {
		onTurn(game.Event{}, st)
	}
	return detach
}

// Wait blocks until every decision the agent has started has returned.
func (a *Agent) Wait() { a.wg.Wait() }

func (a *Agent) move(ctx context.Context, p *match.Perspective, st match.State) {
	defer a.wg.Done()

	made := len(st.Order.Choices) + len(st.Chaos.Choices)
	depth := 0
	if m, ok := a.strategy.(*Minimax); ok {
		depth = m.Depth()
	}
	if d := ThinkDelay(made, depth, a.unit); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}

	start := time.Now()
	choice, err := a.strategy.Choose(ctx, st, p.Team())
	metrics.RecordBotDecisionLatency(a.strategy.Name(), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		a.log.Warn(ctx, "bot could not choose", logger.String("match_id", p.MatchID()), logger.Error(err))
		return
	}
	if err := p.Pick(choice); err != nil {
		// stale decisions lose races against the clock; the match already refused them
		a.log.Debug(ctx, "bot pick rejected",
			logger.String("match_id", p.MatchID()),
			logger.Int("choice", int(choice)),
			logger.Error(err),
		)
	}
}
