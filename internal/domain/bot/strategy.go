// Package bot provides computer opponents: the strategies that choose a
// digit and the Agent that plays them through a match perspective.
package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/search"
	"golang.org/x/exp/rand"
)

// Strategy names accepted in configuration.
const (
	StrategyRandom = "random"
	StrategySearch = "search"
)

// Strategy picks the next digit for team in the given match state.
type Strategy interface {
	Choose(ctx context.Context, st match.State, team game.Team) (game.Choice, error)
	Name() string
}

// Config selects and tunes a bot.
type Config struct {
	ID       string `koanf:"id" json:"id"`
	Strategy string `koanf:"strategy" json:"strategy"`
	Depth    int    `koanf:"depth" json:"depth"`
}

// Validate checks the strategy tag and its parameters.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	switch strings.ToLower(c.Strategy) {
	case StrategyRandom:
		return nil
	case StrategySearch:
		if c.Depth < 1 || c.Depth > game.Digits {
			return fmt.Errorf("%w: got %d", ErrInvalidDepth, c.Depth)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
}

// NewStrategy builds the strategy named by cfg. rng may be nil.
func NewStrategy(cfg Config, rng *rand.Rand) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.ToLower(cfg.Strategy) == StrategySearch {
		return NewMinimax(cfg.Depth, rng), nil
	}
	return NewRandom(rng), nil
}

// picker is a mutex-guarded random source shared by a strategy's calls.
type picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newPicker(rng *rand.Rand) *picker {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Uint64()))
	}
	return &picker{rng: rng}
}

func (p *picker) pick(from []game.Choice) game.Choice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return from[p.rng.Intn(len(from))]
}

// Random picks uniformly among the unused digits.
type Random struct {
	p *picker
}

// NewRandom returns the uniform-random strategy.
func NewRandom(rng *rand.Rand) *Random {
	return &Random{p: newPicker(rng)}
}

// Name implements Strategy.
func (r *Random) Name() string { return StrategyRandom }

// Choose implements Strategy. It panics when no digit is left, which only a
// broken match could ask for.
func (r *Random) Choose(ctx context.Context, st match.State, _ game.Team) (game.Choice, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pool := game.Available(game.SetOf(st.Order.Choices...), game.SetOf(st.Chaos.Choices...))
	if len(pool) == 0 {
		panic("bot: random strategy asked to move with no digits left")
	}
	return r.p.pick(pool), nil
}

// Minimax searches the game tree and plays uniformly among the best moves.
type Minimax struct {
	depth int
	p     *picker
}

// NewMinimax returns the search strategy looking depth plies ahead.
func NewMinimax(depth int, rng *rand.Rand) *Minimax {
	return &Minimax{depth: depth, p: newPicker(rng)}
}

// Name implements Strategy.
func (m *Minimax) Name() string { return StrategySearch }

// Depth returns the configured look-ahead.
func (m *Minimax) Depth() int { return m.depth }

// Choose implements Strategy. Moves are bucketed into wins, draws and
// losses from team's side; a losing position still yields a legal move.
func (m *Minimax) Choose(ctx context.Context, st match.State, team game.Team) (game.Choice, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	history := st.History()
	root := search.Search(history, m.depth)
	if root.Terminal() {
		panic(fmt.Sprintf("bot: search found no move after %v", history))
	}

	sign := 1
	if team != st.Starter {
		sign = -1
	}
	var buckets [3][]game.Choice // loss, draw, win
	for c, child := range root.Children {
		v := child.Value * sign
		buckets[v+1] = append(buckets[v+1], c)
	}
	for i := len(buckets) - 1; i >= 0; i-- {
		if len(buckets[i]) > 0 {
			// sorted so a seeded source repeats despite map order
			slices.Sort(buckets[i])
			return m.p.pick(buckets[i]), nil
		}
	}
	panic("unreachable")
}
