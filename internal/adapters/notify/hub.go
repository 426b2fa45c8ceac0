// Package notify fans notifications out to connected players.
package notify

import (
	"context"
	"sync"

	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/pkg/logger"
	"github.com/okian/fifteen/pkg/metrics"
)

const defaultBuffer = 32

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBuffer sets how many notifications a slow subscriber may fall behind
// before new ones are dropped for it.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// Hub delivers notifications to every open subscription of a player.
// Delivery never blocks the caller.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan model.Notification
	next   uint64
	buffer int
	log    logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[string]map[uint64]chan model.Notification),
		buffer: defaultBuffer,
		log:    logger.Named("notify"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe opens a stream for playerID. The returned func closes it.
func (h *Hub) Subscribe(playerID string) (<-chan model.Notification, func()) {
	ch := make(chan model.Notification, h.buffer)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[playerID] == nil {
		h.subs[playerID] = make(map[uint64]chan model.Notification)
	}
	h.subs[playerID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[playerID], id)
			if len(h.subs[playerID]) == 0 {
				delete(h.subs, playerID)
			}
			close(ch)
		})
	}
}

// Push sends n to every stream of playerID. Players without a stream are
// skipped; a full stream loses this notification.
func (h *Hub) Push(ctx context.Context, playerID string, n model.Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[playerID] {
		select {
		case ch <- n:
		default:
			metrics.RecordNotificationDropped()
			h.log.Warn(ctx, "notification dropped",
				logger.String("player_id", playerID),
				logger.String("match_id", n.MatchID),
				logger.String("kind", string(n.Kind)),
			)
		}
	}
	return nil
}

// Connected returns the number of open streams.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, s := range h.subs {
		n += len(s)
	}
	return n
}
