package match

import "errors"

// Sentinel kinds for rejected match operations. None of them mutate the match.
var (
	ErrInvalidTeam      = errors.New("invalid team")
	ErrInvalidPlayers   = errors.New("both seats need distinct player ids")
	ErrInvalidLimit     = errors.New("time limit must be positive")
	ErrNotStarted       = errors.New("match not started")
	ErrFinished         = errors.New("match already finished")
	ErrNotFinished      = errors.New("match not finished")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrChoiceOutOfRange = errors.New("choice out of range")
	ErrChoiceTaken      = errors.New("choice already taken")
	ErrTimeExpired      = errors.New("turn time expired")
)

// Reason maps a rejection to a short label for metrics and API errors.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTeam):
		return "invalid_team"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, ErrFinished):
		return "finished"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrChoiceOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrChoiceTaken):
		return "taken"
	case errors.Is(err, ErrTimeExpired):
		return "time_expired"
	}
	return "other"
}
