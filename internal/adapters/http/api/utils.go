package api

import (
	"net/http"
	"strconv"
	"strings"
)

// PlayerHeader carries the caller's opaque player id.
const PlayerHeader = "X-Player-ID"

// playerID returns the caller identity from the header, or the player query
// parameter for clients that cannot set headers (browsers opening /ws).
func playerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(PlayerHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("player"))
}

// queryLimit parses ?limit=N within [1, maxLimit]; def is used when absent.
func queryLimit(r *http.Request, def, maxLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, false
	}
	return n, true
}
