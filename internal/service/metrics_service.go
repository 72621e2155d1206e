package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

const (
	metricRequestDuration = "http_request_duration_seconds"
	metricCacheHits       = "cache_hits_total"
	metricCacheMisses     = "cache_misses_total"
	metricTransitions     = "compliance_status_transitions_total"
	metricVersions        = "compliance_versions_uploaded_total"
	metricExpirations     = "compliance_expirations_reconciled_total"
	metricBackendErrors   = "backend_errors_total"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the compliance workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	transitions     *prometheus.CounterVec
	versions        *prometheus.CounterVec
	expirations     *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricRequestDuration,
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricCacheHits,
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricCacheMisses,
		Help: "Total cache misses",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricTransitions,
		Help: "Lifecycle transitions applied to documents and record formats",
	}, []string{"track", "to"})

	versions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricVersions,
		Help: "Versions uploaded per track",
	}, []string{"track"})

	expirations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricExpirations,
		Help: "Approved parents flipped to expired by reconciliation",
	}, []string{"track"})

	backendErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricBackendErrors,
		Help: "Persistence or storage failures by operation",
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		transitions, versions, expirations, backendErrors, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		transitions:     transitions,
		versions:        versions,
		expirations:     expirations,
		backendErrors:   backendErrors,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTransition counts a lifecycle move on a track.
func (m *MetricsService) RecordTransition(track models.Track, to models.DocumentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(track), string(to)).Inc()
}

// RecordVersionUpload counts an uploaded version.
func (m *MetricsService) RecordVersionUpload(track models.Track) {
	if m == nil {
		return
	}
	m.versions.WithLabelValues(string(track)).Inc()
}

// RecordExpirations counts parents flipped to expired.
func (m *MetricsService) RecordExpirations(track models.Track, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expirations.WithLabelValues(string(track)).Add(float64(n))
}

// RecordBackendError counts a failed persistence or storage operation.
func (m *MetricsService) RecordBackendError(operation string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(operation).Inc()
}

// Snapshot digests the registry for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	snapshot := models.SystemMetrics{
		Transitions:           map[string]uint64{},
		VersionsUploaded:      map[string]uint64{},
		ExpirationsReconciled: map[string]uint64{},
		BackendErrors:         map[string]uint64{},
		Goroutines:            runtime.NumGoroutine(),
		GeneratedAt:           time.Now().UTC(),
	}
	if m == nil {
		return snapshot
	}
	families, err := m.registry.Gather()
	if err != nil {
		return snapshot
	}

	var durationSum float64
	for _, family := range families {
		switch family.GetName() {
		case metricRequestDuration:
			for _, metric := range family.GetMetric() {
				snapshot.RequestsTotal += metric.GetHistogram().GetSampleCount()
				durationSum += metric.GetHistogram().GetSampleSum()
			}
		case metricCacheHits:
			snapshot.CacheHits = uint64(sumCounters(family))
		case metricCacheMisses:
			snapshot.CacheMisses = uint64(sumCounters(family))
		case metricTransitions:
			collectByLabel(family, "to", snapshot.Transitions)
		case metricVersions:
			collectByLabel(family, "track", snapshot.VersionsUploaded)
		case metricExpirations:
			collectByLabel(family, "track", snapshot.ExpirationsReconciled)
		case metricBackendErrors:
			collectByLabel(family, "operation", snapshot.BackendErrors)
		}
	}
	if snapshot.RequestsTotal > 0 {
		snapshot.AverageRequestDurationMs = durationSum / float64(snapshot.RequestsTotal) * 1000
	}
	if lookups := snapshot.CacheHits + snapshot.CacheMisses; lookups > 0 {
		snapshot.CacheHitRatio = float64(snapshot.CacheHits) / float64(lookups)
	}
	return snapshot
}

func sumCounters(family *dto.MetricFamily) float64 {
	var total float64
	for _, metric := range family.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	return total
}

func collectByLabel(family *dto.MetricFamily, label string, into map[string]uint64) {
	for _, metric := range family.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label {
				into[pair.GetValue()] += uint64(metric.GetCounter().GetValue())
			}
		}
	}
}
