package match

import (
	"sync"

	"github.com/okian/fifteen/internal/domain/game"
)

// Handler receives an event together with the match state right after it.
// Handlers run synchronously on the match's serialized timeline, so they must
// not call back into Pick, Surrender or Ready directly; hand off to a
// goroutine instead.
type Handler func(ev game.Event, st State)

type subscription struct {
	id uint64
	fn Handler
}

// emitter is an ordered registry of handlers per event kind. It has its own
// lock so handlers may subscribe or cancel while an event is being delivered.
type emitter struct {
	mu       sync.Mutex
	next     uint64
	handlers map[game.EventKind][]subscription
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[game.EventKind][]subscription)}
}

func (e *emitter) subscribe(kind game.EventKind, fn Handler) func() {
	e.mu.Lock()
	e.next++
	id := e.next
	e.handlers[kind] = append(e.handlers[kind], subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			subs := e.handlers[kind]
			for i, s := range subs {
				if s.id == id {
					e.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
					return
				}
			}
		})
	}
}

// emit calls every handler registered for ev.Kind, in registration order.
func (e *emitter) emit(ev game.Event, st State) {
	e.mu.Lock()
	subs := make([]subscription, len(e.handlers[ev.Kind]))
	copy(subs, e.handlers[ev.Kind])
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(ev, st)
	}
}
