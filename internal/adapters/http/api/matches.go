package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/model"
)

// MatchesHandler handles match creation and seat actions.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// createRequest is the body of POST /matches.
type createRequest struct {
	Order string `json:"order"`
	Chaos string `json:"chaos"`
	Mode  string `json:"mode"`
}

func (c createRequest) validate() error {
	switch {
	case strings.TrimSpace(c.Order) == "":
		return fmt.Errorf("%w: missing order", ErrBadRequest)
	case strings.TrimSpace(c.Chaos) == "":
		return fmt.Errorf("%w: missing chaos", ErrBadRequest)
	}
	return nil
}

type pickRequest struct {
	Choice int `json:"choice"`
}

// matchResponse is a live state or, once the match is gone from memory, its
// stored record.
type matchResponse struct {
	Live   *match.State       `json:"live,omitempty"`
	Record *model.MatchRecord `json:"record,omitempty"`
}

// HandleCreate handles POST /matches.
func (h *MatchesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_match"
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	st, err := h.deps.CreateMatch(r.Context(), req.Order, req.Chaos, mode)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// HandleGet handles GET /matches/{id}.
func (h *MatchesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	id := r.PathValue("id")
	st, err := h.deps.Match(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, matchResponse{Live: &st})
		return
	}
	rec, recErr := h.deps.Record(r.Context(), id)
	if recErr != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Record: &rec})
}

// HandleReady handles POST /matches/{id}/ready.
func (h *MatchesHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	const op = "api.ready"
	player := playerID(r)
	if player == "" {
		writeFailure(w, op, ErrMissingPlayer)
		return
	}
	st, err := h.deps.Ready(r.Context(), r.PathValue("id"), player)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandlePick handles POST /matches/{id}/pick.
func (h *MatchesHandler) HandlePick(w http.ResponseWriter, r *http.Request) {
	const op = "api.pick"
	player := playerID(r)
	if player == "" {
		writeFailure(w, op, ErrMissingPlayer)
		return
	}
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := h.deps.Pick(r.Context(), r.PathValue("id"), player, game.Choice(req.Choice))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleSurrender handles POST /matches/{id}/surrender.
func (h *MatchesHandler) HandleSurrender(w http.ResponseWriter, r *http.Request) {
	const op = "api.surrender"
	player := playerID(r)
	if player == "" {
		writeFailure(w, op, ErrMissingPlayer)
		return
	}
	st, err := h.deps.Surrender(r.Context(), r.PathValue("id"), player)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
