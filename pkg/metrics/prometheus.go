// Package metrics provides Prometheus metrics for the fifteen match service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Match engine
	matchesStarted  *prometheus.CounterVec
	matchesFinished *prometheus.CounterVec
	activeMatches   prometheus.Gauge
	picksAccepted   prometheus.Counter
	picksRejected   *prometheus.CounterVec

	// Bots
	botDecisionLatency *prometheus.HistogramVec

	// Rating
	ratingUpdates prometheus.Counter
	ratingErrors  *prometheus.CounterVec
	ladderPlayers prometheus.Gauge

	// Report pipeline
	reportQueueSize      prometheus.Gauge
	reportQueueCapacity  prometheus.Gauge
	reportEnqueueErrors  *prometheus.CounterVec
	reportsPersisted     prometheus.Counter
	reportPersistErrors  prometheus.Counter
	reportPersistLatency prometheus.Histogram
	workerCount          prometheus.Gauge
	notificationsDropped prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fifteen",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.matchesStarted = auto.NewCounterVec(m.counterOpts("matches_started_total", "Matches that left the not-started phase"), []string{"mode"})
	m.matchesFinished = auto.NewCounterVec(m.counterOpts("matches_finished_total", "Finished matches by outcome"), []string{"mode", "outcome"})
	m.activeMatches = auto.NewGauge(m.gaugeOpts("active_matches", "Matches currently held in memory"))
	m.picksAccepted = auto.NewCounter(m.counterOpts("picks_accepted_total", "Accepted picks"))
	m.picksRejected = auto.NewCounterVec(m.counterOpts("picks_rejected_total", "Rejected picks by reason"), []string{"reason"})

	m.botDecisionLatency = auto.NewHistogramVec(m.histogramOpts("bot_decision_latency_milliseconds", "Time a bot spent choosing, think delay excluded"), []string{"strategy"})

	m.ratingUpdates = auto.NewCounter(m.counterOpts("rating_updates_total", "Ranked matches whose ratings were updated"))
	m.ratingErrors = auto.NewCounterVec(m.counterOpts("rating_errors_total", "Ranked matches persisted without a rating update"), []string{"reason"})
	m.ladderPlayers = auto.NewGauge(m.gaugeOpts("ladder_players", "Players with a rating record"))

	m.reportQueueSize = auto.NewGauge(m.gaugeOpts("report_queue_size", "Match records waiting to be persisted"))
	m.reportQueueCapacity = auto.NewGauge(m.gaugeOpts("report_queue_capacity", "Capacity of the report queue"))
	m.reportEnqueueErrors = auto.NewCounterVec(m.counterOpts("report_enqueue_errors_total", "Match records refused by the queue"), []string{"reason"})
	m.reportsPersisted = auto.NewCounter(m.counterOpts("reports_persisted_total", "Match records written to history"))
	m.reportPersistErrors = auto.NewCounter(m.counterOpts("report_persist_errors_total", "Match records that failed to persist"))
	m.reportPersistLatency = auto.NewHistogram(m.histogramOpts("report_persist_latency_milliseconds", "Latency of writing one match record"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Report persistence workers"))
	m.notificationsDropped = auto.NewCounter(m.counterOpts("notifications_dropped_total", "Push notifications dropped on a full subscriber buffer"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total", "Errors by component and type"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
	})
}

// RecordMatchStarted counts a match entering play.
func RecordMatchStarted(mode string) {
	globalManager.matchesStarted.WithLabelValues(mode).Inc()
}

// RecordMatchFinished counts a finished match; outcome is win, draw, surrender or timeout.
func RecordMatchFinished(mode, outcome string) {
	globalManager.matchesFinished.WithLabelValues(mode, outcome).Inc()
}

// UpdateActiveMatches sets the number of live matches.
func UpdateActiveMatches(count int) {
	globalManager.activeMatches.Set(float64(count))
}

// RecordPickAccepted counts an accepted pick.
func RecordPickAccepted() {
	globalManager.picksAccepted.Inc()
}

// RecordPickRejected counts a rejected pick.
func RecordPickRejected(reason string) {
	globalManager.picksRejected.WithLabelValues(reason).Inc()
}

// RecordBotDecisionLatency records how long a strategy took to choose.
func RecordBotDecisionLatency(strategy string, latencyMs float64) {
	globalManager.botDecisionLatency.WithLabelValues(strategy).Observe(latencyMs)
}

// RecordRatingUpdate counts a successful rating update.
func RecordRatingUpdate() {
	globalManager.ratingUpdates.Inc()
}

// RecordRatingError counts a ranked match that could not be rated.
func RecordRatingError(reason string) {
	globalManager.ratingErrors.WithLabelValues(reason).Inc()
}

// UpdateLadderPlayers sets the number of rated players.
func UpdateLadderPlayers(count int) {
	globalManager.ladderPlayers.Set(float64(count))
}

// UpdateReportQueueSize sets the report queue depth.
func UpdateReportQueueSize(size int) {
	globalManager.reportQueueSize.Set(float64(size))
}

// UpdateReportQueueCapacity sets the report queue capacity.
func UpdateReportQueueCapacity(capacity int) {
	globalManager.reportQueueCapacity.Set(float64(capacity))
}

// RecordReportEnqueueError counts a record the queue refused.
func RecordReportEnqueueError(reason string) {
	globalManager.reportEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordReportPersisted counts a stored match record.
func RecordReportPersisted() {
	globalManager.reportsPersisted.Inc()
}

// RecordReportPersistError counts a failed write.
func RecordReportPersistError() {
	globalManager.reportPersistErrors.Inc()
}

// RecordReportPersistLatency records one history write in milliseconds.
func RecordReportPersistLatency(latencyMs float64) {
	globalManager.reportPersistLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the number of persistence workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordNotificationDropped counts a push that did not fit a subscriber buffer.
func RecordNotificationDropped() {
	globalManager.notificationsDropped.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
