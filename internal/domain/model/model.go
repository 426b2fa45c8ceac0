// Package model contains the records passed between the match engine and
// its collaborators: what gets persisted and what gets pushed to players.
package model

import (
	"time"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/rating"
)

// SideReport is the client-facing result of one side.
type SideReport struct {
	Team         game.Team           `json:"team"`
	PlayerID     string              `json:"player_id"`
	Score        float64             `json:"score"`
	LPDelta      int                 `json:"lp_delta"`
	Presentation rating.Presentation `json:"presentation"`
}

// SideRecord is the persisted result of one side.
type SideRecord struct {
	SideReport
	Bot          bool          `json:"bot"`
	Choices      []game.Choice `json:"choices"`
	RatingBefore rating.Record `json:"rating_before"`
	RatingAfter  rating.Record `json:"rating_after"`
}

// Unrate clears the rating fields of a side whose update did not happen.
func (s *SideRecord) Unrate() {
	s.RatingBefore, s.RatingAfter = rating.Record{}, rating.Record{}
	s.LPDelta = 0
	s.Presentation = rating.Presentation{}
}

// MatchRecord is the history entry written once per finished match.
type MatchRecord struct {
	MatchID    string       `json:"match_id"`
	Mode       game.Mode    `json:"mode"`
	Rated      bool         `json:"rated"`
	Winner     game.Team    `json:"winner"`
	Outcome    string       `json:"outcome"`
	Starter    game.Team    `json:"starter"`
	Order      SideRecord   `json:"order"`
	Chaos      SideRecord   `json:"chaos"`
	Events     []game.Event `json:"events"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Side returns the record of one team.
func (r *MatchRecord) Side(t game.Team) *SideRecord {
	switch t {
	case game.Order:
		return &r.Order
	case game.Chaos:
		return &r.Chaos
	}
	return nil
}

// Involves reports whether playerID sat in the match.
func (r *MatchRecord) Involves(playerID string) bool {
	return r.Order.PlayerID == playerID || r.Chaos.PlayerID == playerID
}

// Report is the final summary pushed to human players.
type Report struct {
	MatchID    string     `json:"match_id"`
	Mode       game.Mode  `json:"mode"`
	Rated      bool       `json:"rated"`
	Winner     game.Team  `json:"winner"`
	Outcome    string     `json:"outcome"`
	Order      SideReport `json:"order"`
	Chaos      SideReport `json:"chaos"`
	FinishedAt time.Time  `json:"finished_at"`
}

// ReportOf derives the pushed summary from the stored record.
func ReportOf(r *MatchRecord) Report {
	return Report{
		MatchID:    r.MatchID,
		Mode:       r.Mode,
		Rated:      r.Rated,
		Winner:     r.Winner,
		Outcome:    r.Outcome,
		Order:      r.Order.SideReport,
		Chaos:      r.Chaos.SideReport,
		FinishedAt: r.FinishedAt,
	}
}

// NotificationKind tells a client what a push carries.
type NotificationKind string

const (
	NotifyState  NotificationKind = "state"
	NotifyReport NotificationKind = "report"
)

// Notification is one push to a player.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	MatchID string           `json:"match_id"`
	Event   *game.Event      `json:"event,omitempty"`
	State   *match.State     `json:"state,omitempty"`
	Report  *Report          `json:"report,omitempty"`
}
