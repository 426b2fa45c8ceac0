// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fifteen/internal/adapters/repository"
	service "github.com/okian/fifteen/internal/app"
	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/model"
)

// Dependencies is everything the routes need from the service.
type Dependencies interface {
	MatchDependencies
	LadderDependencies
	PushDependencies

	Bots() []bot.Config
}

// MatchDependencies covers match creation and seat actions.
type MatchDependencies interface {
	CreateMatch(ctx context.Context, orderID, chaosID string, mode game.Mode) (match.State, error)
	Match(ctx context.Context, matchID string) (match.State, error)
	Record(ctx context.Context, matchID string) (model.MatchRecord, error)
	Ready(ctx context.Context, matchID, playerID string) (match.State, error)
	Pick(ctx context.Context, matchID, playerID string, choice game.Choice) (match.State, error)
	Surrender(ctx context.Context, matchID, playerID string) (match.State, error)
}

// Server wires HTTP routes for the match API.
type Server struct {
	ops     *OpsHandler
	matches *MatchesHandler
	ladder  *LadderHandler
	push    *PushHandler
}

// NewServer creates a new API server. maxLimit caps list page sizes.
func NewServer(deps Dependencies, stats StatsProvider, maxLimit int) *Server {
	return &Server{
		ops:     NewOpsHandler(stats, deps.Bots),
		matches: NewMatchesHandler(deps),
		ladder:  NewLadderHandler(deps, maxLimit),
		push:    NewPushHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", instrument("healthz", s.ops.HandleHealth))
	mux.HandleFunc("GET /stats", instrument("stats", s.ops.HandleStats))
	mux.HandleFunc("GET /bots", instrument("bots", s.ops.HandleBots))

	mux.HandleFunc("POST /matches", instrument("matches", s.matches.HandleCreate))
	mux.HandleFunc("GET /matches/{id}", instrument("match", s.matches.HandleGet))
	mux.HandleFunc("POST /matches/{id}/ready", instrument("ready", s.matches.HandleReady))
	mux.HandleFunc("POST /matches/{id}/pick", instrument("pick", s.matches.HandlePick))
	mux.HandleFunc("POST /matches/{id}/surrender", instrument("surrender", s.matches.HandleSurrender))

	mux.HandleFunc("GET /leaderboard", instrument("leaderboard", s.ladder.HandleLeaderboard))
	mux.HandleFunc("GET /rank/{player}", instrument("rank", s.ladder.HandleRank))
	mux.HandleFunc("GET /history/{player}", instrument("history", s.ladder.HandleHistory))

	// Upgraded connections are long-lived; they are not timed.
	mux.HandleFunc("GET /ws", s.push.HandlePush)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates an upstream error into a status and code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingPlayer):
		return http.StatusUnauthorized, "missing_player"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, game.ErrUnknownMode),
		errors.Is(err, match.ErrInvalidPlayers),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrMatchNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNotSeated), errors.Is(err, service.ErrBotSeat):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, match.ErrChoiceOutOfRange):
		return http.StatusBadRequest, match.Reason(err)
	case errors.Is(err, match.ErrNotStarted),
		errors.Is(err, match.ErrFinished),
		errors.Is(err, match.ErrNotYourTurn),
		errors.Is(err, match.ErrChoiceTaken),
		errors.Is(err, match.ErrTimeExpired):
		return http.StatusConflict, match.Reason(err)
	}
	return http.StatusInternalServerError, "internal_error"
}
