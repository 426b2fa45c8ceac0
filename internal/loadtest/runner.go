package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/pkg/logger"
	"golang.org/x/exp/rand"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
	settlePoll          = 100 * time.Millisecond
	percentMultiplier   = 100
)

// ErrConfig is returned for an unusable Config.
var ErrConfig = errors.New("invalid load config")

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: empty base url", ErrConfig)
	case c.Matches < 1:
		return fmt.Errorf("%w: matches must be positive", ErrConfig)
	case c.Players < 2:
		return fmt.Errorf("%w: need at least two players", ErrConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrConfig)
	}
	if _, err := game.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := logger.Named("loadtest")
	stats := &Stats{StartTime: time.Now(), MatchesPlanned: cfg.Matches}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	log.Info(ctx, "starting load run",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("matches", cfg.Matches),
		logger.Int("players", cfg.Players),
		logger.String("mode", cfg.Mode),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", seed))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	players := generatePlayers(cfg.Players)
	results := playMatches(ctx, cfg, c, schedule(players, cfg.Matches, rng), rng, stats)

	played := make(map[string]int, len(players))
	for _, r := range results {
		if r.MatchID != "" && r.Err == "" {
			played[r.Order]++
			played[r.Chaos]++
		}
	}

	if err := settle(ctx, c, played, cfg.Settle); err != nil {
		return stats, fmt.Errorf("history did not settle: %w", err)
	}

	mode, _ := game.ParseMode(cfg.Mode)
	if err := verifyResults(ctx, c, cfg, played, mode == game.Ranked, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveResults(cfg.OutputFile, players, results); err != nil {
			log.Warn(ctx, "failed to save results", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// settle waits for the report queue to drain and every player's history to
// hold the matches the run finished.
func settle(ctx context.Context, c *client, played map[string]int, budget time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		behind, err := lagging(ctx, c, played)
		if err == nil && behind == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("%d players still missing history", behind)
			}
			return err
		case <-ticker.C:
		}
	}
}

func lagging(ctx context.Context, c *client, played map[string]int) (int, error) {
	st, err := c.stats(ctx)
	if err != nil {
		return 0, err
	}
	if st.PendingReports > 0 {
		return len(played), nil
	}
	n := 0
	for id, want := range played {
		want = min(want, historyLimit)
		got, err := c.historyCount(ctx, id, historyLimit)
		if err != nil {
			return 0, err
		}
		if got < want {
			n++
		}
	}
	return n, nil
}

type dump struct {
	Players []Player `json:"players"`
	Matches []Result `json:"matches"`
}

func saveResults(filename string, players []Player, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(dump{Players: players, Matches: results}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(filename, raw, filePermission)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, matchesPerSecond float64
	if stats.MatchesPlanned > 0 {
		successRate = float64(stats.MatchesFinished) / float64(stats.MatchesPlanned) * percentMultiplier
	}
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesFinished) / stats.Duration.Seconds()
	}

	logger.Named("loadtest").Info(ctx, "final statistics",
		logger.Int("matches_planned", stats.MatchesPlanned),
		logger.Int("matches_finished", stats.MatchesFinished),
		logger.Int("matches_failed", stats.MatchesFailed),
		logger.Int("picks", stats.Picks),
		logger.Int("order_wins", stats.OrderWins),
		logger.Int("chaos_wins", stats.ChaosWins),
		logger.Int("draws", stats.Draws),
		logger.Int("rankings_retrieved", stats.RankingsRetrieved),
		logger.Int("leaderboard_entries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("success_rate", successRate),
		logger.Float64("matches_per_second", matchesPerSecond))
}
