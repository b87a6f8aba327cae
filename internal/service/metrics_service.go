package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the reminder loop.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	ticksTotal        prometheus.Counter
	ticksSkipped      prometheus.Counter
	tickDuration      prometheus.Histogram
	sessionsDetected  prometheus.Counter
	sessionsProcessed prometheus.Counter
	dispatchDuration  *prometheus.HistogramVec
	remindersSent     prometheus.Counter
	remindersFailed   prometheus.Counter
	remindersSkipped  prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
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

	ticksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_ticks_total",
		Help: "Total scheduler ticks executed",
	})

	ticksSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_ticks_skipped_total",
		Help: "Scheduler fires skipped because a scan was still running",
	})

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reminder_tick_duration_seconds",
		Help:    "Duration of one full reminder scan",
		Buckets: prometheus.DefBuckets,
	})

	sessionsDetected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_sessions_detected_total",
		Help: "Expired sessions returned by the detector, overlaps included",
	})

	sessionsProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_sessions_processed_total",
		Help: "Expired sessions fully processed",
	})

	dispatchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reminder_dispatch_duration_seconds",
		Help:    "Duration of individual gateway dispatches",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	remindersSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Reminder messages accepted by the gateway",
	})

	remindersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_failed_total",
		Help: "Reminder dispatches rejected or timed out",
	})

	remindersSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_suppressed_total",
		Help: "Reminder sends suppressed by the cooldown window",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ticksTotal, ticksSkipped, tickDuration,
		sessionsDetected, sessionsProcessed, dispatchDuration, remindersSent, remindersFailed,
		remindersSkipped, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		ticksTotal:        ticksTotal,
		ticksSkipped:      ticksSkipped,
		tickDuration:      tickDuration,
		sessionsDetected:  sessionsDetected,
		sessionsProcessed: sessionsProcessed,
		dispatchDuration:  dispatchDuration,
		remindersSent:     remindersSent,
		remindersFailed:   remindersFailed,
		remindersSkipped:  remindersSkipped,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
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

// RecordTick records one executed scheduler tick.
func (m *MetricsService) RecordTick(duration time.Duration) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.tickDuration.Observe(duration.Seconds())
}

// RecordTickSkipped records a fire dropped by the single-flight guard.
func (m *MetricsService) RecordTickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

// ObserveScan records detector output for one scan.
func (m *MetricsService) ObserveScan(found, processed int) {
	if m == nil {
		return
	}
	m.sessionsDetected.Add(float64(found))
	m.sessionsProcessed.Add(float64(processed))
}

// ObserveDispatch records one gateway dispatch.
func (m *MetricsService) ObserveDispatch(outcome models.ReminderOutcome, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
	if outcome == models.ReminderOutcomeSuccess {
		m.remindersSent.Inc()
	} else {
		m.remindersFailed.Inc()
	}
}

// RecordSuppressed records a send suppressed by the cooldown.
func (m *MetricsService) RecordSuppressed() {
	if m == nil {
		return
	}
	m.remindersSkipped.Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
