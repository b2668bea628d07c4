// Package metrics provides Prometheus metrics for the hrdesk console.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	subsystem            = "console"
	systemSampleInterval = 10 * time.Second
)

// Latency buckets in milliseconds, sized for calls to a REST backend.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only default

// Manager owns every collector of the console.
type Manager struct {
	namespace    string
	enabled      bool
	customLabels map[string]string
	registry     prometheus.Registerer

	// HTTP surface of the console itself
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Calls to the REST backend
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Form engine and catalog table
	formSubmissions *prometheus.CounterVec
	optionFetches   *prometheus.CounterVec
	catalogDeletes  *prometheus.CounterVec

	// Bulk fan-out
	bulkItems       *prometheus.CounterVec
	bulkBatchSize   prometheus.Histogram
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejections prometheus.Counter
	workerCount     prometheus.Gauge
	workerLatency   prometheus.Histogram

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    "hrdesk",
		enabled:      true,
		customLabels: make(map[string]string),
		registry:     prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it at startup, before GetRegistry is exposed.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "Console HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "http_request_duration_milliseconds",
		Help:    "Console HTTP request duration in milliseconds",
		Buckets: defaultLatencyBuckets,
	}, []string{"route", "method", "status_code"})

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "upstream_requests_total",
		Help: "Requests sent to the REST backend by method and status class",
	}, []string{"method", "status"})

	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "upstream_latency_milliseconds",
		Help:    "REST backend round-trip latency in milliseconds",
		Buckets: defaultLatencyBuckets,
	}, []string{"method"})

	m.formSubmissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "form_submissions_total",
		Help: "Form submissions by catalog and outcome",
	}, []string{"catalog", "outcome"})

	m.optionFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "option_fetches_total",
		Help: "Select option lookups by result (hit, miss, skipped, error)",
	}, []string{"result"})

	m.catalogDeletes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "catalog_deletes_total",
		Help: "Catalog deletes by catalog and outcome",
	}, []string{"catalog", "outcome"})

	m.bulkItems = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "bulk_items_total",
		Help: "Items of bulk writes by flow and outcome",
	}, []string{"flow", "outcome"})

	m.bulkBatchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "bulk_batch_size",
		Help:    "Number of writes per bulk dispatch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "queue_size",
		Help: "Mutations waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "queue_capacity",
		Help: "Maximum mutations the queue holds",
	})

	m.queueRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "queue_rejections_total",
		Help: "Mutations refused by the queue (closed or full)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "worker_count",
		Help: "Mutation workers running",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "worker_job_latency_milliseconds",
		Help:    "Time a worker spends on one mutation",
		Buckets: defaultLatencyBuckets,
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "errors_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "memory_bytes",
		Help: "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "goroutines",
		Help: "Goroutines running",
	})
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordHTTPRequest records one console request.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// RecordUpstreamRequest records one REST backend call. status is the HTTP
// status class ("2xx", "4xx", ...) or "error" for transport failures.
func RecordUpstreamRequest(method, status string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.upstreamRequests.WithLabelValues(method, status).Inc()
	globalManager.upstreamLatency.WithLabelValues(method).Observe(latencyMs)
}

// RecordFormSubmission records a form submit outcome.
func RecordFormSubmission(catalog, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.formSubmissions.WithLabelValues(catalog, outcome).Inc()
}

// RecordOptionFetch records an option lookup result.
func RecordOptionFetch(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.optionFetches.WithLabelValues(result).Inc()
}

// RecordCatalogDelete records a delete outcome.
func RecordCatalogDelete(catalog, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.catalogDeletes.WithLabelValues(catalog, outcome).Inc()
}

// RecordBulk records the outcome counts of one bulk dispatch.
func RecordBulk(flow string, succeeded, failed int) {
	if !globalManager.enabled {
		return
	}
	globalManager.bulkBatchSize.Observe(float64(succeeded + failed))
	globalManager.bulkItems.WithLabelValues(flow, "succeeded").Add(float64(succeeded))
	globalManager.bulkItems.WithLabelValues(flow, "failed").Add(float64(failed))
}

// UpdateQueueSize sets the queue backlog gauge.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueRejection counts a refused enqueue.
func RecordQueueRejection() { globalManager.queueRejections.Inc() }

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerLatency records time spent on one job.
func RecordWorkerLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry every collector is registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// StatusClass maps an HTTP status code to its label value.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "error"
	}
}

// RunSystemCollector samples heap and goroutine gauges every ten seconds
// until ctx ends.
func RunSystemCollector(ctx context.Context) error {
	sample := func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		UpdateSystemMemoryUsage(ms.HeapAlloc)
		UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}
	sample()
	t := time.NewTicker(systemSampleInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ErrCollectorStopped
		case <-t.C:
			sample()
		}
	}
}
