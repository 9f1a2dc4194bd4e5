package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/hms-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
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
	attestations    *prometheus.CounterVec
	scopeDenials    *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	attestIssued         uint64
	attestDenied         uint64
	scopeDenialCount     uint64

	mu                 sync.Mutex
	transitionCounts   map[string]uint64
	attestFailureCount map[string]uint64
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
		Help:    "Latency for cache operations",
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
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hms_review_transitions_total",
		Help: "Review workflow transitions by family and outcome",
	}, []string{"family", "to", "outcome"})

	attestations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hms_attestations_total",
		Help: "Proximity attestation issuance and verification outcomes",
	}, []string{"stage", "outcome"})

	scopeDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hms_scope_denials_total",
		Help: "Requests refused because the record lies outside the caller's scope",
	}, []string{"module"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		transitions, attestations, scopeDenials, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		transitions:        transitions,
		attestations:       attestations,
		scopeDenials:       scopeDenials,
		transitionCounts:   make(map[string]uint64),
		attestFailureCount: make(map[string]uint64),
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
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

// RecordTransition counts a review transition attempt. outcome is "ok" or an error code.
func (m *MetricsService) RecordTransition(family models.RecordFamily, to models.ReviewStatus, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(family), string(to), outcome).Inc()
	if outcome != "ok" {
		return
	}
	m.mu.Lock()
	m.transitionCounts[string(to)]++
	m.mu.Unlock()
}

// RecordAttestationIssued counts an issuance request that passed or failed the distance check.
func (m *MetricsService) RecordAttestationIssued(granted bool) {
	if m == nil {
		return
	}
	if granted {
		m.attestations.WithLabelValues("issue", "granted").Inc()
		atomic.AddUint64(&m.attestIssued, 1)
		return
	}
	m.attestations.WithLabelValues("issue", "denied").Inc()
	atomic.AddUint64(&m.attestDenied, 1)
}

// RecordAttestationFailure counts a rejected token or submission, keyed by error code.
func (m *MetricsService) RecordAttestationFailure(code string) {
	if m == nil {
		return
	}
	m.attestations.WithLabelValues("verify", code).Inc()
	m.mu.Lock()
	m.attestFailureCount[code]++
	m.mu.Unlock()
}

// RecordScopeDenial counts an out-of-scope refusal for module.
func (m *MetricsService) RecordScopeDenial(module models.ModuleKey) {
	if m == nil {
		return
	}
	m.scopeDenials.WithLabelValues(string(module)).Inc()
	atomic.AddUint64(&m.scopeDenialCount, 1)
}

// Snapshot returns aggregated metrics suitable for the metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{Transitions: map[string]uint64{}, AttestationFailures: map[string]uint64{}}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	m.mu.Lock()
	transitions := make(map[string]uint64, len(m.transitionCounts))
	for k, v := range m.transitionCounts {
		transitions[k] = v
	}
	failures := make(map[string]uint64, len(m.attestFailureCount))
	for k, v := range m.attestFailureCount {
		failures[k] = v
	}
	m.mu.Unlock()

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            cacheRatio,
		Transitions:              transitions,
		AttestationsIssued:       atomic.LoadUint64(&m.attestIssued),
		AttestationsDenied:       atomic.LoadUint64(&m.attestDenied),
		AttestationFailures:      failures,
		ScopeDenials:             atomic.LoadUint64(&m.scopeDenialCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
