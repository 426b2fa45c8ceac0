package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/fifteen/internal/adapters/http/api"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/types"
)

// ErrStatus is returned for any non-2xx response.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the server's error code.
type StatusError struct {
	Status int
	Code   string
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Msg)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// client is a thin JSON client for the match API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path, player string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if player != "" {
		req.Header.Set(api.PlayerHeader, player)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		return &StatusError{Status: resp.StatusCode, Code: e.Code, Msg: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *client) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/stats", "", nil, nil)
}

func (c *client) stats(ctx context.Context) (types.Stats, error) {
	var st types.Stats
	err := c.do(ctx, http.MethodGet, "/stats", "", nil, &st)
	return st, err
}

func (c *client) create(ctx context.Context, order, chaos, mode string) (match.State, error) {
	var st match.State
	err := c.do(ctx, http.MethodPost, "/matches", "", map[string]string{"order": order, "chaos": chaos, "mode": mode}, &st)
	return st, err
}

func (c *client) state(ctx context.Context, id string) (match.State, error) {
	var resp struct {
		Live *match.State `json:"live"`
	}
	if err := c.do(ctx, http.MethodGet, "/matches/"+id, "", nil, &resp); err != nil {
		return match.State{}, err
	}
	if resp.Live == nil {
		return match.State{}, &StatusError{Status: http.StatusNotFound, Code: "not_found", Msg: "match is no longer live"}
	}
	return *resp.Live, nil
}

func (c *client) ready(ctx context.Context, id, player string) (match.State, error) {
	var st match.State
	err := c.do(ctx, http.MethodPost, "/matches/"+id+"/ready", player, nil, &st)
	return st, err
}

func (c *client) pick(ctx context.Context, id, player string, choice int) (match.State, error) {
	var st match.State
	err := c.do(ctx, http.MethodPost, "/matches/"+id+"/pick", player, map[string]int{"choice": choice}, &st)
	return st, err
}

func (c *client) leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	var rows []types.Entry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard?limit=%d", limit), "", nil, &rows)
	return rows, err
}

func (c *client) rank(ctx context.Context, player string) (types.Entry, error) {
	var e types.Entry
	err := c.do(ctx, http.MethodGet, "/rank/"+player, "", nil, &e)
	return e, err
}

func (c *client) historyCount(ctx context.Context, player string, limit int) (int, error) {
	var recs []json.RawMessage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/history/%s?limit=%d", player, limit), "", nil, &recs)
	return len(recs), err
}
