// Package prom implements the observability hooks with Prometheus metrics.
//
// A [Registry] owns its own prometheus.Registry so tests and embedded uses do
// not collide with the global default registry. Register it with the
// observability package and expose it with [Registry.Handler]:
//
//	m := prom.NewRegistry()
//	observability.SetSyncHooks(m)
//	observability.SetHTTPHooks(m)
//	router.Handle("/metrics", m.Handler())
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/factoryflow/pkg/observability"
)

// Registry holds every factoryflow metric.
type Registry struct {
	// Layout
	LayoutsTotal   *prometheus.CounterVec
	LayoutDuration prometheus.Histogram

	// Editor
	EditorActionsTotal *prometheus.CounterVec

	// Synchronizer
	SyncTotal        *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	SyncStepsTotal   *prometheus.CounterVec
	SyncStepDuration *prometheus.HistogramVec

	// Cache
	CacheOpsTotal *prometheus.CounterVec
	CacheSetBytes prometheus.Histogram

	// Remote API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Session server
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SessionsActive      prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric initialized.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initLayoutMetrics()
	r.initSyncMetrics()
	r.initAPIMetrics()
	r.initServerMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Install registers r for every hook category.
func (r *Registry) Install() {
	observability.SetLayoutHooks(r)
	observability.SetEditorHooks(r)
	observability.SetSyncHooks(r)
	observability.SetCacheHooks(r)
	observability.SetHTTPHooks(r)
}

func (r *Registry) initLayoutMetrics() {
	r.LayoutsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_layouts_total",
			Help: "Total number of layout runs",
		},
		[]string{"source", "status"}, // source: engine, cache
	)

	r.LayoutDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factoryflow_layout_duration_seconds",
			Help:    "Duration of layout runs in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)

	r.EditorActionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_editor_actions_total",
			Help: "Total number of editor actions",
		},
		[]string{"action", "changed"},
	)
}

func (r *Registry) initSyncMetrics() {
	r.SyncTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_sync_total",
			Help: "Total number of save-or-update runs",
		},
		[]string{"mode", "status"},
	)

	r.SyncDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factoryflow_sync_duration_seconds",
			Help:    "Duration of save-or-update runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	r.SyncStepsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_sync_steps_total",
			Help: "Total number of remote calls issued by the synchronizer",
		},
		[]string{"step", "status"},
	)

	r.SyncStepDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factoryflow_sync_step_duration_seconds",
			Help:    "Duration of synchronizer remote calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	r.CacheOpsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_cache_operations_total",
			Help: "Total number of cache lookups and writes",
		},
		[]string{"key_type", "result"}, // hit, miss, set
	)

	r.CacheSetBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factoryflow_cache_set_bytes",
			Help:    "Size of cache writes in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
	)
}

func (r *Registry) initAPIMetrics() {
	r.APIRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_api_requests_total",
			Help: "Total number of requests to the factory API",
		},
		[]string{"method", "host", "status"},
	)

	r.APIRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factoryflow_api_request_duration_seconds",
			Help:    "Duration of factory API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "host"},
	)

	r.APIErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_api_errors_total",
			Help: "Total number of failed factory API requests",
		},
		[]string{"method", "host"},
	)
}

func (r *Registry) initServerMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "factoryflow_http_requests_total",
			Help: "Total number of requests served by the session server",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factoryflow_http_request_duration_seconds",
			Help:    "Duration of session server requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	r.SessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "factoryflow_sessions_active",
			Help: "Number of open editor sessions",
		},
	)
}

// =============================================================================
// Recorders
// =============================================================================

// RecordHTTPRequest records a request served by the session server.
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetSessions sets the number of open sessions.
func (r *Registry) SetSessions(n int) {
	r.SessionsActive.Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// =============================================================================
// Hook implementations
// =============================================================================

func (r *Registry) OnLayoutStart(context.Context, int) {}

func (r *Registry) OnLayoutComplete(_ context.Context, _ int, cached bool, d time.Duration, err error) {
	source := "engine"
	if cached {
		source = "cache"
	}
	r.LayoutsTotal.WithLabelValues(source, status(err)).Inc()
	r.LayoutDuration.Observe(d.Seconds())
}

func (r *Registry) OnAction(_ context.Context, action string, changed bool) {
	r.EditorActionsTotal.WithLabelValues(action, strconv.FormatBool(changed)).Inc()
}

func (r *Registry) OnSyncStart(context.Context, string) {}

func (r *Registry) OnSyncStep(_ context.Context, step string, d time.Duration, err error) {
	r.SyncStepsTotal.WithLabelValues(step, status(err)).Inc()
	r.SyncStepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (r *Registry) OnSyncComplete(_ context.Context, _ string, mode string, d time.Duration, err error) {
	r.SyncTotal.WithLabelValues(mode, status(err)).Inc()
	r.SyncDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheOpsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheOpsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheOpsTotal.WithLabelValues(keyType, "set").Inc()
	r.CacheSetBytes.Observe(float64(size))
}

func (r *Registry) OnRequest(context.Context, string, string, string) {}

func (r *Registry) OnResponse(_ context.Context, method, host, _ string, code int, d time.Duration) {
	r.APIRequestsTotal.WithLabelValues(method, host, strconv.Itoa(code)).Inc()
	r.APIRequestDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (r *Registry) OnError(_ context.Context, method, host, _ string, _ error) {
	r.APIErrorsTotal.WithLabelValues(method, host).Inc()
}

var (
	_ observability.LayoutHooks = (*Registry)(nil)
	_ observability.EditorHooks = (*Registry)(nil)
	_ observability.SyncHooks   = (*Registry)(nil)
	_ observability.CacheHooks  = (*Registry)(nil)
	_ observability.HTTPHooks   = (*Registry)(nil)
)
