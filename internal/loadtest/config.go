// Package loadtest drives a running server through complete matches over
// its HTTP API and checks that the ladder and history agree with what was
// played.
package loadtest

import (
	"time"

	"github.com/okian/fifteen/internal/domain/bot"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Matches    int           // Number of matches to play
	Players    int           // Size of the synthetic player pool
	Mode       string        // casual or ranked
	TopN       int           // Leaderboard rows to fetch
	Workers    int           // Concurrent matches
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for history to catch up
	Seed       uint64        // Zero picks a random seed
	OutputFile string        // Optional JSON dump of the finished matches
	Verbose    bool
}

// Player is one synthetic participant and the strategy that plays for it.
type Player struct {
	ID       string     `json:"id"`
	Strategy bot.Config `json:"strategy"`
}

// Result is one played match as the runner saw it.
type Result struct {
	MatchID string `json:"match_id"`
	Order   string `json:"order"`
	Chaos   string `json:"chaos"`
	Winner  string `json:"winner"`
	Picks   int    `json:"picks"`
	Err     string `json:"error,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	MatchesPlanned     int
	MatchesFinished    int
	MatchesFailed      int
	Picks              int
	OrderWins          int
	ChaosWins          int
	Draws              int
	RankingsRetrieved  int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
