package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	requestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_count_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	activeRequestsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_active",
			Help: "Number of active HTTP requests",
		},
	)

	// Error metrics
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_total",
			Help: "Total number of errors by type and component",
		},
		[]string{"type", "component"},
	)

	// Marketplace metrics
	taskTransitionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transitions_total",
			Help: "Total number of task state transitions by resulting status",
		},
		[]string{"status"},
	)

	bidTransitionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bid_transitions_total",
			Help: "Total number of bid state transitions by resulting status",
		},
		[]string{"status"},
	)

	acceptConflictCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bid_accept_conflicts_total",
			Help: "Total number of accept calls lost to a stale task version",
		},
	)

	settlementCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_settlements_total",
			Help: "Total number of finished settlements by outcome",
		},
		[]string{"status"},
	)

	settlementAttemptCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_settlement_attempts_total",
			Help: "Total number of settlement attempts against the gateway",
		},
	)

	reviewCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_total",
			Help: "Total number of reviews recorded by rating",
		},
		[]string{"rating"},
	)

	notificationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of outbound notifications by delivery status",
		},
		[]string{"status"},
	)
)

// MetricsHandler returns an http.Handler that serves the metrics endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware wraps an http.Handler and records metrics about the request
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		activeRequestsGauge.Inc()
		defer activeRequestsGauge.Dec()

		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": fmt.Sprintf("%d", sw.status),
		}

		requestDurationHistogram.With(labels).Observe(duration)
		requestCounter.With(labels).Inc()
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// RecordTaskTransition records a task reaching the given status
func RecordTaskTransition(status string) {
	taskTransitionCounter.WithLabelValues(status).Inc()
}

// RecordBidTransition records a bid reaching the given status
func RecordBidTransition(status string) {
	bidTransitionCounter.WithLabelValues(status).Inc()
}

// RecordAcceptConflict records an accept call rejected with a stale version
func RecordAcceptConflict() {
	acceptConflictCounter.Inc()
}

// RecordSettlement records a finished settlement by outcome
func RecordSettlement(status string) {
	settlementCounter.WithLabelValues(status).Inc()
}

// RecordSettlementAttempt records one attempt against the gateway
func RecordSettlementAttempt() {
	settlementAttemptCounter.Inc()
}

// RecordReview records a recorded review by rating
func RecordReview(rating int) {
	reviewCounter.WithLabelValues(fmt.Sprintf("%d", rating)).Inc()
}

// RecordNotification records an outbound notification delivery outcome
func RecordNotification(status string) {
	notificationCounter.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence by type and component
func RecordError(errorType string, component string) {
	errorCounter.WithLabelValues(errorType, component).Inc()
}
