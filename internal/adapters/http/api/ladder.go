package api

import (
	"context"
	"net/http"

	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/internal/domain/types"
)

const (
	defaultLeaderboardLimit = 10
	defaultHistoryLimit     = 20
)

// LadderDependencies reads ratings and finished matches.
type LadderDependencies interface {
	TopN(ctx context.Context, n int) ([]types.Entry, error)
	Rank(ctx context.Context, playerID string) (types.Entry, error)
	History(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error)
}

// LadderHandler serves the leaderboard, single ranks and match history.
type LadderHandler struct {
	deps     LadderDependencies
	maxLimit int
}

// NewLadderHandler creates a new ladder handler. maxLimit caps ?limit on
// both list endpoints.
func NewLadderHandler(deps LadderDependencies, maxLimit int) *LadderHandler {
	return &LadderHandler{deps: deps, maxLimit: maxLimit}
}

// HandleLeaderboard handles GET /leaderboard?limit=N.
func (h *LadderHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	n, ok := queryLimit(r, min(defaultLeaderboardLimit, h.maxLimit), h.maxLimit)
	if !ok {
		writeFailure(w, op, ErrBadRequest)
		return
	}
	rows, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleRank handles GET /rank/{player}.
func (h *LadderHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	row, err := h.deps.Rank(r.Context(), r.PathValue("player"))
	if err != nil {
		writeFailure(w, "api.rank", err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleHistory handles GET /history/{player}?limit=N, newest first.
func (h *LadderHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.history"
	n, ok := queryLimit(r, min(defaultHistoryLimit, h.maxLimit), h.maxLimit)
	if !ok {
		writeFailure(w, op, ErrBadRequest)
		return
	}
	recs, err := h.deps.History(r.Context(), r.PathValue("player"), n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
