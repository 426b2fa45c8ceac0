package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/pkg/logger"
	"golang.org/x/exp/rand"
)

const (
	workerChannelMultiplier = 2
	progressInterval        = time.Second
)

// generatePlayers builds the synthetic pool. Strength is spread evenly from
// random play up to a full-depth search so the ladder has something to sort.
func generatePlayers(n int) []Player {
	players := make([]Player, n)
	for i := range players {
		cfg := bot.Config{ID: uuid.NewString(), Strategy: bot.StrategyRandom}
		if depth := i % (game.Digits + 1); depth > 0 {
			cfg.Strategy = bot.StrategySearch
			cfg.Depth = depth
		}
		players[i] = Player{ID: cfg.ID, Strategy: cfg}
	}
	return players
}

type pairing struct {
	order, chaos Player
}

// schedule pairs distinct players at random.
func schedule(players []Player, matches int, rng *rand.Rand) []pairing {
	out := make([]pairing, matches)
	for i := range out {
		a := rng.Intn(len(players))
		b := rng.Intn(len(players) - 1)
		if b >= a {
			b++
		}
		out[i] = pairing{order: players[a], chaos: players[b]}
	}
	return out
}

// playMatches runs every pairing through cfg.Workers concurrent players.
func playMatches(ctx context.Context, cfg *Config, c *client, pairs []pairing, rng *rand.Rand, stats *Stats) []Result {
	log := logger.Named("loadtest")
	log.Info(ctx, "playing matches", logger.Int("matches", len(pairs)), logger.Int("workers", cfg.Workers))

	var (
		finished int64
		failed   int64
		lastLog  atomic.Int64
		wg       sync.WaitGroup
	)
	results := make([]Result, len(pairs))
	jobs := make(chan int, cfg.Workers*workerChannelMultiplier)

	for w := 0; w < cfg.Workers; w++ {
		seed := rng.Uint64()
		wg.Add(1)
		go func() {
			defer wg.Done()
			wrng := rand.New(rand.NewSource(seed))
			for i := range jobs {
				res := playSingleMatch(ctx, c, cfg.Mode, pairs[i], wrng)
				results[i] = res
				if res.Err != "" {
					atomic.AddInt64(&failed, 1)
					log.Debug(ctx, "match failed", logger.String("match_id", res.MatchID), logger.String("error", res.Err))
				} else {
					atomic.AddInt64(&finished, 1)
				}

				now := time.Now().UnixNano()
				if last := lastLog.Load(); now-last >= int64(progressInterval) && lastLog.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("finished", int(atomic.LoadInt64(&finished))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))),
						logger.Int("total", len(pairs)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range pairs {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	for _, r := range results {
		switch {
		case r.MatchID == "" && r.Err == "":
			// never scheduled
		case r.Err != "":
			stats.MatchesFailed++
		default:
			stats.MatchesFinished++
			stats.Picks += r.Picks
			switch r.Winner {
			case game.Order.String():
				stats.OrderWins++
			case game.Chaos.String():
				stats.ChaosWins++
			default:
				stats.Draws++
			}
		}
	}
	return results
}

// playSingleMatch creates one match and plays both seats to the end.
func playSingleMatch(ctx context.Context, c *client, mode string, p pairing, rng *rand.Rand) Result {
	res := Result{Order: p.order.ID, Chaos: p.chaos.ID}
	fail := func(err error) Result {
		res.Err = err.Error()
		return res
	}

	orderStrategy, err := bot.NewStrategy(p.order.Strategy, rand.New(rand.NewSource(rng.Uint64())))
	if err != nil {
		return fail(err)
	}
	chaosStrategy, err := bot.NewStrategy(p.chaos.Strategy, rand.New(rand.NewSource(rng.Uint64())))
	if err != nil {
		return fail(err)
	}

	st, err := c.create(ctx, p.order.ID, p.chaos.ID, mode)
	if err != nil {
		return fail(fmt.Errorf("create: %w", err))
	}
	res.MatchID = st.ID

	if st.Phase == match.NotStarted {
		for _, id := range []string{p.order.ID, p.chaos.ID} {
			if st, err = c.ready(ctx, st.ID, id); err != nil {
				return fail(fmt.Errorf("ready: %w", err))
			}
		}
	}

	for !st.Finished {
		team := st.Turn
		seat, strategy := p.order, orderStrategy
		if team == game.Chaos {
			seat, strategy = p.chaos, chaosStrategy
		}
		choice, err := strategy.Choose(ctx, st, team)
		if err != nil {
			return fail(err)
		}
		next, err := c.pick(ctx, st.ID, seat.ID, int(choice))
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Code == "time_expired" {
				// The clock ran out first; the match went to the opponent.
				res.Winner = team.Opponent().String()
				return res
			}
			return fail(fmt.Errorf("pick %d: %w", choice, err))
		}
		st = next
		res.Picks++
	}
	res.Winner = st.Winner.String()
	return res
}
