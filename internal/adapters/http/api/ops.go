package api

import (
	"context"
	"net/http"

	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/types"
	"github.com/okian/fifteen/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider reports service counters.
type StatsProvider interface {
	GetStats(ctx context.Context) types.Stats
}

// OpsHandler serves the operational endpoints: metrics, counters and the
// bot roster.
type OpsHandler struct {
	metrics http.Handler
	stats   StatsProvider
	bots    func() []bot.Config
}

// NewOpsHandler creates a new ops handler.
func NewOpsHandler(stats StatsProvider, bots func() []bot.Config) *OpsHandler {
	return &OpsHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		stats:   stats,
		bots:    bots,
	}
}

// HandleHealth serves the Prometheus registry; a successful scrape doubles
// as a liveness check.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleStats handles GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats(r.Context()))
}

// HandleBots handles GET /bots.
func (h *OpsHandler) HandleBots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.bots())
}
