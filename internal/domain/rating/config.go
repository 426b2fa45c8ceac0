package rating

import (
	"fmt"
	"strings"
)

// Algorithm selects the rating family.
type Algorithm string

const (
	Elo     Algorithm = "elo"
	Glicko2 Algorithm = "glicko2"
)

// Config is the read-only tuning snapshot both engines and the presentation
// mapping are computed from.
type Config struct {
	Algorithm Algorithm `koanf:"algorithm" json:"algorithm"`

	// LP = round(LPPerLeague * ((score - BaseScore) / LeagueLength + BaseLeague))
	BaseScore    float64 `koanf:"base_score" json:"base_score"`
	LeagueLength float64 `koanf:"league_length" json:"league_length"`
	BaseLeague   float64 `koanf:"base_league" json:"base_league"`

	InitialK   float64 `koanf:"initial_k" json:"initial_k"`
	FinalK     float64 `koanf:"final_k" json:"final_k"`
	KDeflation float64 `koanf:"k_deflation" json:"k_deflation"`

	PlacementMatches int `koanf:"placement_matches" json:"placement_matches"`

	InitialDeviation   float64 `koanf:"initial_deviation" json:"initial_deviation"`
	MinDeviation       float64 `koanf:"min_deviation" json:"min_deviation"`
	MaxDeviation       float64 `koanf:"max_deviation" json:"max_deviation"`
	DeviationThreshold float64 `koanf:"deviation_threshold" json:"deviation_threshold"`
	// InflationPerHour is c in RD' = sqrt(RD^2 + c^2 * hours idle).
	InflationPerHour float64 `koanf:"inflation_per_hour" json:"inflation_per_hour"`
}

// DefaultConfig returns the tuning used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Algorithm:          Elo,
		BaseScore:          1500,
		LeagueLength:       400,
		BaseLeague:         1,
		InitialK:           40,
		FinalK:             16,
		KDeflation:         0.1,
		PlacementMatches:   10,
		InitialDeviation:   350,
		MinDeviation:       30,
		MaxDeviation:       350,
		DeviationThreshold: 110,
		InflationPerHour:   5,
	}
}

// Validate reports the first inconsistent field.
func (c Config) Validate() error {
	switch Algorithm(strings.ToLower(string(c.Algorithm))) {
	case Elo, Glicko2:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, c.Algorithm)
	}

	switch {
	case c.LeagueLength <= 0:
		return fmt.Errorf("%w: league_length must be positive", ErrInvalidConfig)
	case c.PlacementMatches < 0:
		return fmt.Errorf("%w: placement_matches must not be negative", ErrInvalidConfig)
	case c.InitialK <= 0 || c.FinalK <= 0:
		return fmt.Errorf("%w: k factors must be positive", ErrInvalidConfig)
	case c.KDeflation < 0 || c.KDeflation > 1:
		return fmt.Errorf("%w: k_deflation must be within [0,1]", ErrInvalidConfig)
	}

	if Algorithm(strings.ToLower(string(c.Algorithm))) == Glicko2 {
		switch {
		case c.MinDeviation <= 0:
			return fmt.Errorf("%w: min_deviation must be positive", ErrInvalidConfig)
		case c.MaxDeviation < c.MinDeviation:
			return fmt.Errorf("%w: max_deviation below min_deviation", ErrInvalidConfig)
		case c.InitialDeviation < c.MinDeviation || c.InitialDeviation > c.MaxDeviation:
			return fmt.Errorf("%w: initial_deviation outside [min,max]", ErrInvalidConfig)
		case c.InflationPerHour < 0:
			return fmt.Errorf("%w: inflation_per_hour must not be negative", ErrInvalidConfig)
		}
	}
	return nil
}
