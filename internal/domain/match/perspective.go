package match

import "github.com/okian/fifteen/internal/domain/game"

// Perspective is one seat's handle on a match. It can only act as its own
// team; everything it can read is public to both seats anyway.
type Perspective struct {
	m    *Match
	team game.Team
}

// Team returns the seat this perspective acts for.
func (p *Perspective) Team() game.Team { return p.team }

// MatchID returns the id of the underlying match.
func (p *Perspective) MatchID() string { return p.m.ID() }

// PlayerID returns the player sitting on this seat.
func (p *Perspective) PlayerID() string { return p.m.PlayerID(p.team) }

// State returns the current match snapshot.
func (p *Perspective) State() State { return p.m.State() }

// Pick plays choice for this seat.
func (p *Perspective) Pick(choice game.Choice) error { return p.m.Pick(p.team, choice) }

// Surrender concedes the match for this seat.
func (p *Perspective) Surrender() error { return p.m.Surrender(p.team) }

// Ready signals this seat is ready to play.
func (p *Perspective) Ready() error { return p.m.Ready(p.team) }

// Subscribe registers h on the underlying match.
func (p *Perspective) Subscribe(kind game.EventKind, h Handler) (cancel func()) {
	return p.m.Subscribe(kind, h)
}
