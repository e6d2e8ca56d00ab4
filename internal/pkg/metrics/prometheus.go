package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paygate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paygate",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Session metrics
	tokenRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "session",
			Name:      "rotations_total",
			Help:      "Refresh token rotations by outcome",
		},
		[]string{"outcome"},
	)

	credentialsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "session",
			Name:      "credentials_swept_total",
			Help:      "Expired refresh tokens removed by the sweeper",
		},
	)

	// Billing metrics
	billingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "billing",
			Name:      "events_total",
			Help:      "Billing notifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paygate",
			Subsystem: "billing",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of billing provider API calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "status"},
	)

	// Entitlement metrics
	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "entitlement",
			Name:      "verdicts_total",
			Help:      "Entitlement guard decisions by status",
		},
		[]string{"status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRotation records the outcome of a refresh token rotation
func RecordRotation(outcome string) {
	tokenRotationsTotal.WithLabelValues(outcome).Inc()
}

// RecordCredentialsSwept adds to the count of expired tokens removed
func RecordCredentialsSwept(n int64) {
	credentialsSweptTotal.Add(float64(n))
}

// RecordBillingEvent records a handled billing notification
func RecordBillingEvent(kind, outcome string) {
	billingEventsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordProviderCall records a billing provider API call
func RecordProviderCall(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	providerCallDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordVerdict records an entitlement guard decision
func RecordVerdict(status string) {
	verdictsTotal.WithLabelValues(status).Inc()
}
