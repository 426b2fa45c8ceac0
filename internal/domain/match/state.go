package match

import (
	"time"

	"github.com/okian/fifteen/internal/domain/game"
)

// Phase is the match lifecycle.
type Phase string

const (
	NotStarted Phase = "not_started"
	InProgress Phase = "in_progress"
	Finished   Phase = "finished"
)

// SideState is what both seats may see about one side. The game has no
// hidden information so the same view is served to everyone.
type SideState struct {
	PlayerID    string        `json:"player_id"`
	Choices     []game.Choice `json:"choices"`
	RemainingMS int64         `json:"remaining_ms"`
	Surrendered bool          `json:"surrendered"`
	Ready       bool          `json:"ready"`
}

// State is an immutable snapshot of a match.
type State struct {
	ID         string       `json:"id"`
	Mode       game.Mode    `json:"mode"`
	Phase      Phase        `json:"phase"`
	Turn       game.Team    `json:"turn"`
	Starter    game.Team    `json:"starter"`
	Winner     game.Team    `json:"winner"`
	Finished   bool         `json:"finished"`
	Order      SideState    `json:"order"`
	Chaos      SideState    `json:"chaos"`
	Events     []game.Event `json:"events"`
	StartedAt  time.Time    `json:"started_at,omitzero"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
}

// Side returns the view of one team; an invalid team yields the zero value.
func (s State) Side(t game.Team) SideState {
	switch t {
	case game.Order:
		return s.Order
	case game.Chaos:
		return s.Chaos
	}
	return SideState{}
}

// History interleaves both sides' picks, starting side first.
func (s State) History() []game.Choice {
	if !s.Starter.Valid() {
		return nil
	}
	first := s.Side(s.Starter).Choices
	second := s.Side(s.Starter.Opponent()).Choices
	out := make([]game.Choice, 0, len(first)+len(second))
	for i := 0; i < len(first) || i < len(second); i++ {
		if i < len(first) {
			out = append(out, first[i])
		}
		if i < len(second) {
			out = append(out, second[i])
		}
	}
	return out
}

// Used returns the digits taken by either side.
func (s State) Used() game.Set {
	return game.SetOf(s.Order.Choices...) | game.SetOf(s.Chaos.Choices...)
}

// FinalScore is 1 for the winner, 0 for the loser and 0.5 each on a draw.
// ok is false until the match is finished or for an invalid team.
func (s State) FinalScore(t game.Team) (score float64, ok bool) {
	if !s.Finished || !t.Valid() {
		return 0, false
	}
	switch s.Winner {
	case game.NoTeam:
		return 0.5, true
	case t:
		return 1, true
	}
	return 0, true
}

// Outcome labels how the match ended: win, draw, surrender or timeout.
// It is empty for an unfinished match.
func (s State) Outcome() string {
	if !s.Finished {
		return ""
	}
	if s.Winner == game.NoTeam {
		return "draw"
	}
	if n := len(s.Events); n > 0 {
		switch s.Events[n-1].Kind {
		case game.EventForfeit:
			return "surrender"
		case game.EventTimeout:
			return "timeout"
		}
	}
	return "win"
}
