package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer          prometheus.Gatherer
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	transitionsTotal  *prometheus.CounterVec
	transitionErrors  *prometheus.CounterVec
	notificationsSent prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	m := &Metrics{
		gatherer: gatherer,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_transitions_total",
			Help: "Total count of lifecycle transitions applied by entity and target status.",
		}, []string{"entity", "status"}),
		transitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_transition_errors_total",
			Help: "Total count of rejected lifecycle transitions by entity.",
		}, []string{"entity"}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_notifications_sent_total",
			Help: "Total notifications enqueued for delivery.",
		}),
	}
	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.transitionsTotal,
		m.transitionErrors,
		m.notificationsSent,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and durations per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)
		if m == nil {
			return
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry the collectors were registered against.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Transition(entity, status string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(entity, status).Inc()
}

func (m *Metrics) TransitionError(entity string) {
	if m == nil {
		return
	}
	m.transitionErrors.WithLabelValues(entity).Inc()
}

func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}
