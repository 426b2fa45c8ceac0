package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/pkg/metrics"
)

// History keeps finished match records by id and by player.
type History struct {
	mu        sync.RWMutex
	byID      map[string]model.MatchRecord
	byPlayer  map[string][]string // match ids, oldest first
	perPlayer int
}

// NewHistory constructs an empty history store.
func NewHistory(opts ...HistoryOption) *History {
	h := &History{
		byID:      make(map[string]model.MatchRecord),
		byPlayer:  make(map[string][]string),
		perPlayer: 1000,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Save stores rec. Saving the same match id again is a no-op, so retried
// deliveries are harmless.
func (h *History) Save(_ context.Context, rec model.MatchRecord) error { //nolint:gocritic // hugeParam: records are stored by value
	if rec.MatchID == "" || rec.Order.PlayerID == "" || rec.Chaos.PlayerID == "" {
		metrics.RecordErrorByComponent("history", "invalid_record")
		return fmt.Errorf("%w: match record needs an id and both players", ErrInvalidRecord)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byID[rec.MatchID]; ok {
		return nil
	}
	h.byID[rec.MatchID] = rec
	for _, p := range []string{rec.Order.PlayerID, rec.Chaos.PlayerID} {
		ids := append(h.byPlayer[p], rec.MatchID)
		if h.perPlayer > 0 && len(ids) > h.perPlayer {
			ids = ids[len(ids)-h.perPlayer:]
		}
		h.byPlayer[p] = ids
	}
	return nil
}

// Get returns one match record. Returns ErrNotFound for an unknown id.
func (h *History) Get(_ context.Context, matchID string) (model.MatchRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.byID[matchID]
	if !ok {
		return model.MatchRecord{}, fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}
	return rec, nil
}

// ListByPlayer returns up to limit of a player's matches, newest first.
func (h *History) ListByPlayer(_ context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	if limit < 1 {
		metrics.RecordErrorByComponent("history", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := h.byPlayer[playerID]
	out := make([]model.MatchRecord, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.byID[ids[i]])
	}
	return out, nil
}

// Count returns the number of stored matches.
func (h *History) Count(_ context.Context) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}
