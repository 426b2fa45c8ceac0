package loadtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/fifteen/internal/domain/types"
	"github.com/okian/fifteen/pkg/logger"
)

// historyLimit stays within the server's default maximum page size.
const historyLimit = 100

// verifyResults checks the ladder order and that every player's rating and
// history reflect the matches they finished.
func verifyResults(ctx context.Context, c *client, cfg *Config, played map[string]int, ranked bool, stats *Stats) error {
	log := logger.Named("loadtest")

	rows, err := c.leaderboard(ctx, cfg.TopN)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	stats.LeaderboardEntries = len(rows)

	var errs []error
	if err := verifyLeaderboard(rows); err != nil {
		errs = append(errs, err)
	}

	for id, n := range played {
		got, err := c.historyCount(ctx, id, historyLimit)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("history %s: %w", id, err))
		case got != min(n, historyLimit):
			errs = append(errs, fmt.Errorf("history %s: %d records, played %d", id, got, n))
		}

		if !ranked {
			continue
		}
		e, err := c.rank(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("rank %s: %w", id, err))
			continue
		}
		stats.RankingsRetrieved++
		if e.Matches != n {
			errs = append(errs, fmt.Errorf("rank %s: rated %d matches, played %d", id, e.Matches, n))
		}
	}

	for _, row := range rows {
		log.Debug(ctx, "leaderboard",
			logger.Int("rank", row.Rank),
			logger.String("player_id", row.PlayerID),
			logger.Float64("score", row.Score),
			logger.String("league", string(row.League)),
			logger.Int("division", row.Division))
	}
	if len(errs) == 0 {
		log.Info(ctx, "results verified", logger.Int("players", len(played)))
	}
	return errors.Join(errs...)
}

// verifyLeaderboard checks the dense ranking: the board starts at rank 1,
// scores never increase, tied scores share a rank and each lower score takes
// the next rank.
func verifyLeaderboard(rows []types.Entry) error {
	for i, row := range rows {
		if i == 0 {
			if row.Rank != 1 {
				return fmt.Errorf("board starts at rank %d", row.Rank)
			}
			continue
		}
		prev := rows[i-1]
		switch {
		case row.Score > prev.Score:
			return fmt.Errorf("rank %d (%.2f) outscores rank %d (%.2f)", row.Rank, row.Score, prev.Rank, prev.Score)
		case row.Score == prev.Score && row.Rank != prev.Rank:
			return fmt.Errorf("tied score %.2f split across ranks %d and %d", row.Score, prev.Rank, row.Rank)
		case row.Score < prev.Score && row.Rank != prev.Rank+1:
			return fmt.Errorf("rank %d follows rank %d", row.Rank, prev.Rank)
		}
	}
	return nil
}
