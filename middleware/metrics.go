package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP and waitlist collectors exposed on /metrics.
type Metrics struct {
	latency    *prometheus.HistogramVec
	requests   *prometheus.CounterVec
	promotions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cricket",
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route",
		}, []string{"route", "method", "code"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket",
			Subsystem: "waitlist",
			Name:      "promotions_total",
			Help:      "Waitlist promotion attempts by execution path and outcome",
		}, []string{"path", "outcome"}),
	}
	reg.MustRegister(m.latency, m.requests, m.promotions)
	return m
}

// Middleware labels requests with the chi route pattern, so path parameters
// do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{"route": route, "method": r.Method, "code": strconv.Itoa(status)}
		m.latency.With(labels).Observe(time.Since(start).Seconds())
		m.requests.With(labels).Inc()
	})
}

func (m *Metrics) ObservePromotion(path string, outcome models.PromotionOutcome) {
	m.promotions.WithLabelValues(path, string(outcome)).Inc()
}
