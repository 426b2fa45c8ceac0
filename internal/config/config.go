// Package config defines the service configuration and how it is loaded.
//
// Values are layered defaults, then an optional YAML file, then environment
// variables. Nested keys are addressed in the environment with a double
// underscore, e.g. FIFTEEN_MATCH__TIME_LIMIT_MS.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/rating"
)

// Config contains process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Match    MatchConfig    `koanf:"match"`
	Rating   rating.Config  `koanf:"rating"`
	Bots     BotsConfig     `koanf:"bots"`
	Pipeline PipelineConfig `koanf:"pipeline"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// ServerConfig covers the HTTP listener and logging.
type ServerConfig struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
}

// MatchConfig covers new matches.
type MatchConfig struct {
	// TimeLimitMS is each side's thinking time.
	TimeLimitMS int `koanf:"time_limit_ms"`
	// RequireReady makes both seats confirm before the clock starts.
	RequireReady bool `koanf:"require_ready"`
	// CumulativeClock gives each side one budget for the match instead of
	// a fresh limit every turn.
	CumulativeClock bool `koanf:"cumulative_clock"`
}

// TimeLimit returns TimeLimitMS as a duration.
func (m MatchConfig) TimeLimit() time.Duration {
	return time.Duration(m.TimeLimitMS) * time.Millisecond
}

// BotsConfig lists the computer players seated on request.
type BotsConfig struct {
	// ThinkMS is the base think delay, scaled by search depth and board size.
	ThinkMS int          `koanf:"think_ms"`
	Roster  []bot.Config `koanf:"roster"`
}

// ThinkUnit returns ThinkMS as a duration.
func (b BotsConfig) ThinkUnit() time.Duration {
	return time.Duration(b.ThinkMS) * time.Millisecond
}

// PipelineConfig sizes the report persistence path.
type PipelineConfig struct {
	// QueueSize bounds the in-memory report queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many finished match ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// HistoryPerPlayer caps how many records are indexed per player.
	HistoryPerPlayer int `koanf:"history_per_player"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":9080",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Match: MatchConfig{
			TimeLimitMS: 30_000,
		},
		Rating: rating.DefaultConfig(),
		Bots: BotsConfig{
			ThinkMS: 500,
			Roster: []bot.Config{
				{ID: "bot-random", Strategy: bot.StrategyRandom},
				{ID: "bot-easy", Strategy: bot.StrategySearch, Depth: 2},
				{ID: "bot-perfect", Strategy: bot.StrategySearch, Depth: 9},
			},
		},
		Pipeline: PipelineConfig{
			QueueSize:        10_000,
			WorkerCount:      runtime.NumCPU(),
			DedupeSize:       100_000,
			HistoryPerPlayer: 1000,
		},
		MaxLeaderboardLimit: 100,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalidConfig)
	case c.Server.LogFormat != "text" && c.Server.LogFormat != "json":
		return fmt.Errorf("%w: server.log_format must be text or json", ErrInvalidConfig)
	case c.Match.TimeLimitMS <= 0:
		return fmt.Errorf("%w: match.time_limit_ms must be positive", ErrInvalidConfig)
	case c.Bots.ThinkMS < 0:
		return fmt.Errorf("%w: bots.think_ms must not be negative", ErrInvalidConfig)
	case c.Pipeline.QueueSize <= 0:
		return fmt.Errorf("%w: pipeline.queue_size must be positive", ErrInvalidConfig)
	case c.Pipeline.WorkerCount <= 0:
		return fmt.Errorf("%w: pipeline.worker_count must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}

	if err := c.Rating.Validate(); err != nil {
		return fmt.Errorf("%w: rating: %w", ErrInvalidConfig, err)
	}

	seen := make(map[string]bool, len(c.Bots.Roster))
	for _, b := range c.Bots.Roster {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: bot %q: %w", ErrInvalidConfig, b.ID, err)
		}
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate bot id %q", ErrInvalidConfig, b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}
