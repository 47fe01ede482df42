package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// distribution engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	distributionRuns     *prometheus.CounterVec
	distributionDuration *prometheus.HistogramVec
	unassignedStudents   prometheus.Counter
	removedConflicts     prometheus.Counter
	enrollmentsGauge     prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	distributionRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_runs_total",
		Help: "Distribution runs by scope and outcome",
	}, []string{"scope", "outcome"})

	distributionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "distribution_duration_seconds",
		Help:    "Duration of distribution runs",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"scope"})

	unassignedStudents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "distribution_unassigned_students_total",
		Help: "Students left unassigned across distribution runs",
	})

	removedConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "distribution_removed_conflicts_total",
		Help: "Enrollments revoked by the post-distribution conflict sweep",
	})

	enrollmentsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "distribution_last_run_enrollments",
		Help: "Enrollments written by the most recent distribution run",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite,
		cacheHits, cacheMisses, distributionRuns, distributionDuration,
		unassignedStudents, removedConflicts, enrollmentsGauge, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:             registry,
		handler:              handler,
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		distributionRuns:     distributionRuns,
		distributionDuration: distributionDuration,
		unassignedStudents:   unassignedStudents,
		removedConflicts:     removedConflicts,
		enrollmentsGauge:     enrollmentsGauge,
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache set operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDistribution records one distribution run. Scope is "course",
// "language_group" or "batch"; outcome is "success" or "failure".
func (m *MetricsService) ObserveDistribution(scope, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.distributionRuns.WithLabelValues(scope, outcome).Inc()
	m.distributionDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// AddUnassigned counts students a run could not place.
func (m *MetricsService) AddUnassigned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.unassignedStudents.Add(float64(count))
}

// AddRemovedConflicts counts enrollments revoked by the conflict sweep.
func (m *MetricsService) AddRemovedConflicts(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.removedConflicts.Add(float64(count))
}

// SetLastRunEnrollments records the size of the most recent run.
func (m *MetricsService) SetLastRunEnrollments(count int) {
	if m == nil {
		return
	}
	m.enrollmentsGauge.Set(float64(count))
}
