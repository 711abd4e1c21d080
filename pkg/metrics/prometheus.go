// Package metrics provides Prometheus metrics for the hero-bans bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the bridge.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// State store
	stateWrites      prometheus.Counter
	stateRejected    prometheus.Counter
	stateCacheErrors *prometheus.CounterVec

	// Live feed
	liveSubscribers prometheus.Gauge
	liveMessages    prometheus.Counter
	liveDropped     prometheus.Counter

	// Assets
	heroesTotal    prometheus.Gauge
	fontsTotal     prometheus.Gauge
	assetReloads   *prometheus.CounterVec
	suggestQueries prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "herobans",
		subsystem:        "bridge",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.stateWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_writes_total",
		Help:        "Total number of accepted state writes",
		ConstLabels: labels,
	})

	m.stateRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_rejected_total",
		Help:        "Total number of state writes rejected as invalid JSON",
		ConstLabels: labels,
	})

	m.stateCacheErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_cache_errors_total",
		Help:        "State cache failures by operation (load, save)",
		ConstLabels: labels,
	}, []string{"op"})

	m.liveSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "live_subscribers",
		Help:        "Number of connected live state subscribers",
		ConstLabels: labels,
	})

	m.liveMessages = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "live_messages_total",
		Help:        "Total number of state messages pushed to live subscribers",
		ConstLabels: labels,
	})

	m.liveDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "live_dropped_total",
		Help:        "Total number of live subscribers dropped for falling behind",
		ConstLabels: labels,
	})

	m.heroesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "heroes_total",
		Help:        "Number of heroes in the loaded catalog",
		ConstLabels: labels,
	})

	m.fontsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fonts_total",
		Help:        "Number of font files found in the last scan",
		ConstLabels: labels,
	})

	m.assetReloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "asset_reloads_total",
		Help:        "Asset reloads by kind (heroes, fonts) and result (ok, error)",
		ConstLabels: labels,
	}, []string{"kind", "result"})

	m.suggestQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "suggest_queries_total",
		Help:        "Total number of hero autocomplete queries",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Errors by endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "error_latency_milliseconds",
		Help:        "Latency of failed requests in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordStateWrite increments the accepted state writes counter.
func RecordStateWrite() {
	if !globalManager.enabled {
		return
	}
	globalManager.stateWrites.Inc()
}

// RecordStateRejected increments the rejected state writes counter.
func RecordStateRejected() {
	if !globalManager.enabled {
		return
	}
	globalManager.stateRejected.Inc()
}

// RecordStateCacheError counts a cache failure for op ("load" or "save").
func RecordStateCacheError(op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.stateCacheErrors.WithLabelValues(op).Inc()
}

// UpdateLiveSubscribers sets the number of connected live subscribers.
func UpdateLiveSubscribers(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.liveSubscribers.Set(float64(count))
}

// RecordLiveMessage increments the live messages counter.
func RecordLiveMessage() {
	if !globalManager.enabled {
		return
	}
	globalManager.liveMessages.Inc()
}

// RecordLiveDropped increments the dropped live subscribers counter.
func RecordLiveDropped() {
	if !globalManager.enabled {
		return
	}
	globalManager.liveDropped.Inc()
}

// UpdateHeroesTotal sets the hero catalog size.
func UpdateHeroesTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.heroesTotal.Set(float64(count))
}

// UpdateFontsTotal sets the number of fonts found.
func UpdateFontsTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.fontsTotal.Set(float64(count))
}

// RecordAssetReload counts an asset reload of kind with result "ok" or "error".
func RecordAssetReload(kind, result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.assetReloads.WithLabelValues(kind, result).Inc()
}

// RecordSuggestQuery increments the autocomplete queries counter.
func RecordSuggestQuery() {
	if !globalManager.enabled {
		return
	}
	globalManager.suggestQueries.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records how long a failed request took.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the current memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
