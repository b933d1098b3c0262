package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the rate limiting module.
type Metrics struct {
	RateLimitExceededTotal *prometheus.CounterVec
	StoreFailoversTotal    *prometheus.CounterVec
	LoginLockoutsTotal     prometheus.Counter
	LoginFailuresRecorded  prometheus.Counter
}

// New creates and registers all rate limiting metrics.
func New() *Metrics {
	return &Metrics{
		RateLimitExceededTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapfeed_ratelimit_exceeded_total",
			Help: "Total number of requests rejected by a rate limiter, labeled by limiter namespace",
		}, []string{"limiter"}),
		StoreFailoversTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapfeed_ratelimit_store_failovers_total",
			Help: "Total number of operations served by the insurance store after a durable store failure",
		}, []string{"limiter"}),
		LoginLockoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_ratelimit_login_lockouts_total",
			Help: "Total number of login attempts rejected during an active lockout",
		}),
		LoginFailuresRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_ratelimit_login_failures_recorded_total",
			Help: "Total number of failed login attempts recorded against brute-force limiters",
		}),
	}
}

func (m *Metrics) IncrementExceeded(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitExceededTotal.WithLabelValues(limiter).Inc()
}

func (m *Metrics) IncrementFailovers(limiter string) {
	if m == nil {
		return
	}
	m.StoreFailoversTotal.WithLabelValues(limiter).Inc()
}

func (m *Metrics) IncrementLoginLockouts() {
	if m == nil {
		return
	}
	m.LoginLockoutsTotal.Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	if m == nil {
		return
	}
	m.LoginFailuresRecorded.Inc()
}
