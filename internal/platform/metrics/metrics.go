package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds application-level Prometheus metrics.
type Metrics struct {
	UsersCreated    prometheus.Counter
	ActiveSessions  prometheus.Gauge
	AuthFailures    prometheus.Counter
	PhotosUploaded  prometheus.Counter
	VotesCast       *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_users_created_total",
			Help: "Total number of users created",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapfeed_active_sessions",
			Help: "Current number of active sessions",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		PhotosUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_photos_uploaded_total",
			Help: "Total number of photos uploaded",
		}),
		VotesCast: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapfeed_votes_cast_total",
			Help: "Total number of votes cast, labeled by direction",
		}, []string{"direction"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapfeed_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// ObserveLatency times each request into the endpoint latency histogram.
// The chi route pattern labels the observation so path parameters do not
// explode metric cardinality.
func (m *Metrics) ObserveLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		m.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})
}
