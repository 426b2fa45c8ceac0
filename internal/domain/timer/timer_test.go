package timer_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/fifteen/internal/domain/timer"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTimerExpiry(t *testing.T) {
	Convey("Given a 100ms timer", t, func() {
		var fired atomic.Int32
		done := make(chan struct{}, 2)
		tm := timer.New(100*time.Millisecond, func() {
			fired.Add(1)
			done <- struct{}{}
		})

		Convey("When it is never started", func() {
			time.Sleep(150 * time.Millisecond)

			Convey("Then it does not fire", func() {
				So(fired.Load(), ShouldEqual, 0)
				So(tm.State(), ShouldEqual, timer.Paused)
				So(tm.Remaining(), ShouldEqual, 100*time.Millisecond)
			})
		})

		Convey("When it counts down without interruption", func() {
			tm.Start()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}

			Convey("Then it fires exactly once and is terminal", func() {
				So(fired.Load(), ShouldEqual, 1)
				So(tm.Expired(), ShouldBeTrue)
				So(tm.Remaining(), ShouldEqual, 0)

				tm.Start()
				tm.Pause()
				tm.SetRemaining(time.Second)
				time.Sleep(50 * time.Millisecond)
				So(fired.Load(), ShouldEqual, 1)
				So(tm.State(), ShouldEqual, timer.Expired)
			})
		})

		Convey("When it is paused before reaching zero", func() {
			tm.Start()
			time.Sleep(20 * time.Millisecond)
			tm.Pause()
			left := tm.Remaining()
			time.Sleep(150 * time.Millisecond)

			Convey("Then it does not fire and keeps its remaining time", func() {
				So(fired.Load(), ShouldEqual, 0)
				So(tm.Remaining(), ShouldEqual, left)
				So(left, ShouldBeLessThan, 100*time.Millisecond)
			})

			Convey("And resuming fires after the remainder", func() {
				tm.Start()
				select {
				case <-done:
				case <-time.After(2 * time.Second):
				}
				So(fired.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestTimerNoDrift(t *testing.T) {
	Convey("Given a timer on a controlled clock", t, func() {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		tm := timer.New(10*time.Second, nil, timer.WithClock(clock.Now))
		defer tm.Pause()

		Convey("When cycling start and pause", func() {
			tm.Start()
			clock.Advance(3 * time.Second)
			tm.Pause()
			clock.Advance(time.Hour)
			tm.Start()
			clock.Advance(2 * time.Second)

			Convey("Then only counting time is deducted", func() {
				So(tm.Remaining(), ShouldEqual, 5*time.Second)
				tm.Pause()
				clock.Advance(time.Minute)
				So(tm.Remaining(), ShouldEqual, 5*time.Second)
			})
		})

		Convey("When the remaining time is reset mid-count", func() {
			tm.Start()
			clock.Advance(4 * time.Second)
			tm.SetRemaining(8 * time.Second)
			clock.Advance(time.Second)

			Convey("Then counting continues from the new value", func() {
				So(tm.State(), ShouldEqual, timer.Counting)
				So(tm.Remaining(), ShouldEqual, 7*time.Second)
			})
		})

		Convey("When start is called twice", func() {
			tm.Start()
			clock.Advance(time.Second)
			tm.Start()
			clock.Advance(time.Second)

			Convey("Then the second call does not restart the count", func() {
				So(tm.Remaining(), ShouldEqual, 8*time.Second)
			})
		})
	})
}

func TestTimerStateString(t *testing.T) {
	Convey("Given timer states", t, func() {
		So(timer.Paused.String(), ShouldEqual, "paused")
		So(timer.Counting.String(), ShouldEqual, "counting")
		So(timer.Expired.String(), ShouldEqual, "expired")
	})
}
