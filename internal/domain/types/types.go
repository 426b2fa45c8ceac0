// Package types contains the read shapes served by the API.
package types

import "github.com/okian/fifteen/internal/domain/rating"

// Entry represents a leaderboard row.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Score    float64 `json:"score"`
	Matches  int     `json:"matches"`
	rating.Presentation
}

// Stats summarizes the running service.
type Stats struct {
	Started         bool `json:"started"`
	ActiveMatches   int  `json:"active_matches"`
	RatedPlayers    int  `json:"rated_players"`
	StoredMatches   int  `json:"stored_matches"`
	PendingReports  int  `json:"pending_reports"`
	WorkerCount     int  `json:"worker_count"`
	ConnectedPushes int  `json:"connected_pushes"`
}
