// Package simulation plays ranked matches between configured bots inside
// one process and reports the resulting ladder.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/types"
	"github.com/okian/fifteen/pkg/logger"
	"golang.org/x/exp/rand"
)

// Errors.
var (
	ErrTooFewBots = errors.New("simulation needs at least two bots")
	ErrNoMatches  = errors.New("simulation needs at least one match")
)

// Engine is the part of the service a simulation drives.
type Engine interface {
	Bots() []bot.Config
	CreateMatch(ctx context.Context, orderID, chaosID string, mode game.Mode) (match.State, error)
	WaitIdle(ctx context.Context) error
	TopN(ctx context.Context, n int) ([]types.Entry, error)
}

// Options tune a run.
type Options struct {
	Matches int
	// Batch is how many matches are in flight at once.
	Batch int
	TopN  int
	Seed  uint64
}

// Summary is the outcome of a run.
type Summary struct {
	Played   int
	Failed   int
	Duration time.Duration
	Ladder   []types.Entry
}

// Run plays opts.Matches ranked matches between random pairs of e's bots,
// opts.Batch at a time, then reads the top of the ladder.
func Run(ctx context.Context, e Engine, opts Options) (Summary, error) {
	bots := e.Bots()
	switch {
	case len(bots) < 2:
		return Summary{}, ErrTooFewBots
	case opts.Matches < 1:
		return Summary{}, ErrNoMatches
	}
	if opts.Batch < 1 {
		opts.Batch = 1
	}
	if opts.TopN < 1 {
		opts.TopN = len(bots)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))
	log := logger.Named("simulation")

	var sum Summary
	start := time.Now()
	for left := opts.Matches; left > 0; {
		n := min(left, opts.Batch)
		for range n {
			a := rng.Intn(len(bots))
			b := rng.Intn(len(bots) - 1)
			if b >= a {
				b++
			}
			if _, err := e.CreateMatch(ctx, bots[a].ID, bots[b].ID, game.Ranked); err != nil {
				sum.Failed++
				log.Warn(ctx, "create failed", logger.String("order", bots[a].ID), logger.String("chaos", bots[b].ID), logger.Error(err))
				continue
			}
			sum.Played++
		}
		left -= n
		if err := e.WaitIdle(ctx); err != nil {
			return sum, fmt.Errorf("waiting for batch: %w", err)
		}
		log.Debug(ctx, "batch done", logger.Int("played", sum.Played), logger.Int("left", left))
	}
	sum.Duration = time.Since(start)

	ladder, err := e.TopN(ctx, opts.TopN)
	if err != nil {
		return sum, err
	}
	sum.Ladder = ladder
	log.Info(ctx, "simulation finished",
		logger.Int("played", sum.Played),
		logger.Int("failed", sum.Failed),
		logger.Duration("duration", sum.Duration))
	return sum, nil
}

// Print writes the ladder as an aligned table.
func Print(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "RANK\tPLAYER\tSCORE\tMATCHES\tLEAGUE\tLP\n")
	for _, e := range s.Ladder {
		league := string(e.League)
		if e.Division > 0 {
			league = fmt.Sprintf("%s %d", league, e.Division)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%.1f\t%d\t%s\t%d\n", e.Rank, e.PlayerID, e.Score, e.Matches, league, e.LP)
	}
	_, _ = fmt.Fprintf(tw, "\n%d matches in %s (%d failed)\n", s.Played, s.Duration.Round(time.Millisecond), s.Failed)
	return tw.Flush()
}
