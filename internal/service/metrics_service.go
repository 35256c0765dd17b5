package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/scrud-api/pkg/live"
)

// MetricsService encapsulates Prometheus instrumentation.
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
	cacheEvictions  prometheus.Counter
	enrollments     *prometheus.CounterVec
	gradesRecorded  *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	transcripts     *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheEvictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_invalidated_keys_total",
		Help: "Cached grade entries removed after committed changes",
	})

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_operations_total",
		Help: "Enrollment writes by operation",
	}, []string{"op"})

	gradesRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grades_recorded_total",
		Help: "Grades recorded, split by graded and cleared",
	}, []string{"kind"})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_assignments_total",
		Help: "Course assignment attempts by outcome",
	}, []string{"outcome"})

	transcripts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_jobs_total",
		Help: "Transcript jobs by final status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		cacheEvictions, enrollments, gradesRecorded, assignments, transcripts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheEvictions:  cacheEvictions,
		enrollments:     enrollments,
		gradesRecorded:  gradesRecorded,
		assignments:     assignments,
		transcripts:     transcripts,
	}
}

// TrackHub exposes the number of live subscriptions held by hub.
func (m *MetricsService) TrackHub(hub *live.Hub) error {
	if m == nil || hub == nil {
		return nil
	}
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "live_subscriptions",
		Help: "Change hub subscriptions, including open live views",
	}, func() float64 {
		return float64(hub.Subscribers())
	}))
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

// Gatherer exposes the registry for tests and embedding.
func (m *MetricsService) Gatherer() prometheus.Gatherer {
	return m.registry
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

// RecordCacheInvalidation counts removed cache keys.
func (m *MetricsService) RecordCacheInvalidation(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(removed))
}

// RecordEnrollment counts an enroll or unenroll.
func (m *MetricsService) RecordEnrollment(op string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(op).Inc()
}

// RecordGrade counts a recorded or cleared grade.
func (m *MetricsService) RecordGrade(graded bool) {
	if m == nil {
		return
	}
	kind := "cleared"
	if graded {
		kind = "graded"
	}
	m.gradesRecorded.WithLabelValues(kind).Inc()
}

// RecordAssignment counts an assignment attempt by outcome.
func (m *MetricsService) RecordAssignment(outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(outcome).Inc()
}

// RecordTranscript counts a transcript job reaching status.
func (m *MetricsService) RecordTranscript(status string) {
	if m == nil {
		return
	}
	m.transcripts.WithLabelValues(status).Inc()
}
