package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 1024
)

// PushDependencies opens notification streams and accepts seat commands
// arriving over the socket.
type PushDependencies interface {
	Subscribe(playerID string) (<-chan model.Notification, func())
	Ready(ctx context.Context, matchID, playerID string) (match.State, error)
	Pick(ctx context.Context, matchID, playerID string, choice game.Choice) (match.State, error)
	Surrender(ctx context.Context, matchID, playerID string) (match.State, error)
}

// PushHandler streams a player's notifications over a websocket.
type PushHandler struct {
	deps     PushDependencies
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewPushHandler creates a new push handler. Any origin may connect; player
// ids are opaque and carry no authority beyond their own seat.
func NewPushHandler(deps PushDependencies) *PushHandler {
	return &PushHandler{
		deps:     deps,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      logger.Named("push"),
	}
}

// command is one client message.
type command struct {
	Type    string `json:"type"` // ready, pick or surrender
	MatchID string `json:"match_id"`
	Choice  int    `json:"choice,omitempty"`
}

// reply answers a command; notifications are written as they are.
type reply struct {
	Kind    string       `json:"kind"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
	State   *match.State `json:"state,omitempty"`
}

// HandlePush handles GET /ws?player=ID.
func (h *PushHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		writeFailure(w, "api.push", ErrMissingPlayer)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.String("player_id", player), logger.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	stream, unsubscribe := h.deps.Subscribe(player)
	defer unsubscribe()
	h.log.Debug(r.Context(), "push connected", logger.String("player_id", player))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	replies := make(chan reply, 8)
	go h.read(ctx, cancel, conn, player, replies)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		var msg any
		select {
		case <-ctx.Done():
			return
		case n, ok := <-stream:
			if !ok {
				return
			}
			msg = n
		case rep := <-replies:
			msg = rep
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug(ctx, "push write failed", logger.String("player_id", player), logger.Error(err))
			return
		}
	}
}

// read runs client commands until the connection drops.
func (h *PushHandler) read(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, player string, out chan<- reply) {
	defer cancel()
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.send(ctx, out, reply{Kind: "error", Code: "bad_request", Message: err.Error()})
			continue
		}
		h.send(ctx, out, h.run(ctx, player, cmd))
	}
}

func (h *PushHandler) run(ctx context.Context, player string, cmd command) reply {
	var (
		st  match.State
		err error
	)
	switch cmd.Type {
	case "ready":
		st, err = h.deps.Ready(ctx, cmd.MatchID, player)
	case "pick":
		st, err = h.deps.Pick(ctx, cmd.MatchID, player, game.Choice(cmd.Choice))
	case "surrender":
		st, err = h.deps.Surrender(ctx, cmd.MatchID, player)
	default:
		return reply{Kind: "error", Code: "bad_request", Message: "unknown command " + cmd.Type}
	}
	if err != nil {
		_, code := classify(err)
		return reply{Kind: "error", Code: code, Message: err.Error()}
	}
	return reply{Kind: "ack", State: &st}
}

func (h *PushHandler) send(ctx context.Context, out chan<- reply, r reply) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}
