package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the lifecycle handlers.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	notifications    *prometheus.CounterVec
	events           *prometheus.CounterVec
	eventDuration    *prometheus.HistogramVec
	sweepTransitions prometheus.Counter
	sweepRuns        *prometheus.CounterVec
	hourEntries      prometheus.Counter
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Per-recipient notification outcomes",
	}, []string{"template", "outcome"})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_handled_total",
		Help: "Lifecycle events processed by collection, kind and outcome",
	}, []string{"collection", "kind", "outcome"})

	eventDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_handle_duration_seconds",
		Help:    "Duration of a single event invocation",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 300, 600},
	}, []string{"collection", "kind"})

	sweepTransitions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_transitions_total",
		Help: "Sessions auto-completed by the daily sweep",
	})

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Daily sweep runs by outcome",
	}, []string{"outcome"})

	hourEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hour_entries_created_total",
		Help: "Hour entries appended for completed sessions",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		notifications, events, eventDuration, sweepTransitions, sweepRuns, hourEntries, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		notifications:    notifications,
		events:           events,
		eventDuration:    eventDuration,
		sweepTransitions: sweepTransitions,
		sweepRuns:        sweepRuns,
		hourEntries:      hourEntries,
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

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
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

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordNotification counts one recipient outcome for template.
func (m *MetricsService) RecordNotification(template, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(template, outcome).Inc()
}

// ObserveEvent records one event invocation.
func (m *MetricsService) ObserveEvent(collection, kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(collection, kind, outcome).Inc()
	m.eventDuration.WithLabelValues(collection, kind).Observe(duration.Seconds())
}

// RecordSweep counts a sweep run and the sessions it transitioned.
func (m *MetricsService) RecordSweep(transitioned int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.sweepRuns.WithLabelValues("failed").Inc()
		return
	}
	m.sweepRuns.WithLabelValues("ok").Inc()
	m.sweepTransitions.Add(float64(transitioned))
}

// IncHourEntries counts an appended hour entry.
func (m *MetricsService) IncHourEntries() {
	if m == nil {
		return
	}
	m.hourEntries.Inc()
}
