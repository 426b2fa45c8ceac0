package match

import (
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/timer"
)

// MuteExpiry gives team a clock that runs out without telling the match. It
// holds open the window between a clock firing and the match handling it.
func (m *Match) MuteExpiry(team game.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sides[team].clock = timer.New(m.limit, nil, timer.WithClock(m.now))
}

// ClockExpired reports whether team's clock has fired.
func (m *Match) ClockExpired(team game.Team) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sides[team].clock.Expired()
}
