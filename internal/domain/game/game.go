// Package game holds the rules and shared vocabulary of "pick fifteen":
// two sides alternately take digits 1-9, no digit twice, and a side wins as
// soon as three of its digits sum to 15.
package game

import (
	"fmt"
	"strings"
)

// Target is the sum a side's triple must hit to win.
const Target = 15

// Choice bounds.
const (
	MinChoice Choice = 1
	MaxChoice Choice = 9
	// Digits is the size of the shared pool and the longest possible match.
	Digits = 9
)

// Choice is one digit picked by a side.
type Choice int

// Valid reports whether c is within 1..9.
func (c Choice) Valid() bool { return c >= MinChoice && c <= MaxChoice }

// Team identifies a side. The zero value means "no team" and is used for an
// unset turn or a missing winner.
type Team uint8

const (
	NoTeam Team = iota
	Order
	Chaos
)

// Teams lists both sides in seat order.
var Teams = [2]Team{Order, Chaos}

// Valid reports whether t is Order or Chaos.
func (t Team) Valid() bool { return t == Order || t == Chaos }

// Opponent returns the other side.
func (t Team) Opponent() Team {
	switch t {
	case Order:
		return Chaos
	case Chaos:
		return Order
	}
	return NoTeam
}

func (t Team) String() string {
	switch t {
	case Order:
		return "order"
	case Chaos:
		return "chaos"
	}
	return "none"
}

// MarshalText encodes the team as its lowercase name.
func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts "order", "chaos" or "none"/"".
func (t *Team) UnmarshalText(b []byte) error {
	parsed, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTeam parses a team name, case-insensitively.
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "order":
		return Order, nil
	case "chaos":
		return Chaos, nil
	case "", "none":
		return NoTeam, nil
	}
	return NoTeam, fmt.Errorf("%w: %q", ErrUnknownTeam, s)
}

// Mode selects whether a match affects ratings.
type Mode string

const (
	Casual Mode = "casual"
	Ranked Mode = "ranked"
)

// ParseMode parses a game mode; an empty string means casual.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Ranked:
		return Ranked, nil
	case Casual, "":
		return Casual, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// HasWinningTriple reports whether some three distinct entries of choices sum to Target.
func HasWinningTriple(choices []Choice) bool {
	n := len(choices)
	for i := 0; i < n-2; i++ {
		for j := i + 1; j < n-1; j++ {
			for k := j + 1; k < n; k++ {
				if choices[i]+choices[j]+choices[k] == Target {
					return true
				}
			}
		}
	}
	return false
}

// Set is a bitmask of digits, bit c set when digit c is present.
type Set uint16

// SetOf builds a Set from choices.
func SetOf(choices ...Choice) Set {
	var s Set
	for _, c := range choices {
		s = s.With(c)
	}
	return s
}

// Has reports whether c is in the set.
func (s Set) Has(c Choice) bool { return c.Valid() && s&(1<<uint(c)) != 0 }

// With returns s with c added.
func (s Set) With(c Choice) Set { return s | 1<<uint(c) }

// Len returns the number of digits in the set.
func (s Set) Len() int {
	n := 0
	for c := MinChoice; c <= MaxChoice; c++ {
		if s.Has(c) {
			n++
		}
	}
	return n
}

// Choices lists the digits of s in ascending order.
func (s Set) Choices() []Choice {
	out := make([]Choice, 0, Digits)
	for c := MinChoice; c <= MaxChoice; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Available lists the digits that are in neither set, ascending.
func Available(a, b Set) []Choice {
	return (^(a | b)).Choices()
}

// winningSets holds every 3-digit subset of 1..9 that sums to Target.
var winningSets = func() []Set {
	var out []Set
	for i := MinChoice; i <= MaxChoice; i++ {
		for j := i + 1; j <= MaxChoice; j++ {
			k := Target - i - j
			if k > j && k <= MaxChoice {
				out = append(out, SetOf(i, j, k))
			}
		}
	}
	return out
}()

// Wins reports whether the set contains a triple summing to Target.
// It agrees with HasWinningTriple and is the hot path for search.
func (s Set) Wins() bool {
	for _, w := range winningSets {
		if s&w == w {
			return true
		}
	}
	return false
}
