// Package rating turns match outcomes into skill updates and maps ratings
// onto leagues for display. Everything here is pure: engines compute new
// records and never store them.
package rating

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Record is one player's rating state.
type Record struct {
	Score       float64   `json:"score"`
	Deviation   float64   `json:"deviation,omitempty"`
	KFactor     float64   `json:"k_factor,omitempty"`
	Matches     int       `json:"matches"`
	LastMatchAt time.Time `json:"last_match_at,omitzero"`
}

// Valid reports whether r can be stored: every number is finite.
func (r Record) Valid() bool {
	for _, v := range []float64{r.Score, r.Deviation, r.KFactor} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Matches >= 0
}

// Engine is one rating family.
type Engine interface {
	Algorithm() Algorithm
	// NewRecord is the rating of a player who has never played.
	NewRecord(now time.Time) Record
	// Update rates one match; scoreA is A's result (1 win, 0.5 draw, 0 loss).
	Update(a, b Record, scoreA float64, now time.Time) (Record, Record)
	// LP is the display integer derived from a record.
	LP(r Record) int
	// Present maps a record onto league, division and points.
	Present(r Record) Presentation
}

// New returns the engine selected by cfg.Algorithm.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Algorithm = Algorithm(strings.ToLower(string(cfg.Algorithm)))
	if cfg.Algorithm == Glicko2 {
		return &glicko{cfg: cfg}, nil
	}
	return &elo{cfg: cfg}, nil
}

// ValidScore reports whether s is a legal match result.
func ValidScore(s float64) bool { return s == 0 || s == 0.5 || s == 1 }

// CheckScore wraps ErrInvalidScore for an illegal result.
func CheckScore(s float64) error {
	if !ValidScore(s) {
		return fmt.Errorf("%w: got %v", ErrInvalidScore, s)
	}
	return nil
}

// lp applies the shared display formula.
func lp(cfg Config, score float64) int {
	return int(math.Round(LPPerLeague * ((score-cfg.BaseScore)/cfg.LeagueLength + cfg.BaseLeague)))
}

// expected is the logistic win expectancy of a against b on the 400 scale.
func expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}
