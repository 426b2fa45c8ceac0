// Package timer implements the pausable per-player countdown used by matches.
//
// A Timer keeps a snapshot (since, remaining, state) and recomputes the
// remaining time on read, so repeated pause/start cycles never drift: only
// time spent counting is deducted. At most one expiry callback is pending at
// a time; pausing cancels it and starting schedules a new one for the
// remaining duration.
package timer

import (
	"sync"
	"time"
)

// State is the lifecycle of a Timer.
type State int

const (
	Paused State = iota
	Counting
	Expired
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Counting:
		return "counting"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock overrides the wall clock used to measure elapsed counting time.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// Timer is a pausable countdown. It is safe for concurrent use.
type Timer struct {
	mu        sync.Mutex
	state     State
	remaining time.Duration // frozen value while paused; value at `since` while counting
	since     time.Time
	pending   *time.Timer
	gen       uint64
	onExpire  func()
	now       func() time.Time
}

// New returns a paused timer holding d. onExpire runs once, on its own
// goroutine, when the countdown reaches zero while counting.
func New(d time.Duration, onExpire func(), opts ...Option) *Timer {
	if d < 0 {
		d = 0
	}
	t := &Timer{
		state:     Paused,
		remaining: d,
		onExpire:  onExpire,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins counting if the timer is paused. It is a no-op while counting
// or after expiry.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Paused {
		return
	}
	t.state = Counting
	t.since = t.now()
	t.schedule()
}

// Pause freezes the remaining time and cancels the pending expiry. It is a
// no-op unless counting.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Counting {
		return
	}
	t.remaining = t.remainingLocked()
	t.state = Paused
	t.cancel()
}

// Remaining returns the time left on the countdown.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// SetRemaining resets the countdown to d without reallocating the timer.
// A counting timer keeps counting from the new value. Expired timers are
// left untouched.
func (t *Timer) SetRemaining(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Paused:
		t.remaining = d
	case Counting:
		t.cancel()
		t.remaining = d
		t.since = t.now()
		t.schedule()
	}
}

// State reports the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Expired reports whether the countdown has fired.
func (t *Timer) Expired() bool {
	return t.State() == Expired
}

func (t *Timer) remainingLocked() time.Duration {
	switch t.state {
	case Counting:
		left := t.remaining - t.now().Sub(t.since)
		if left < 0 {
			return 0
		}
		return left
	case Expired:
		return 0
	}
	return t.remaining
}

// schedule arms one expiry for the remaining duration. Caller holds mu.
func (t *Timer) schedule() {
	t.gen++
	gen := t.gen
	t.pending = time.AfterFunc(t.remaining, func() { t.fire(gen) })
}

// cancel disarms the pending expiry. A callback already in flight is
// discarded by the generation check in fire. Caller holds mu.
func (t *Timer) cancel() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if t.state != Counting || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.state = Expired
	t.remaining = 0
	t.pending = nil
	cb := t.onExpire
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}
