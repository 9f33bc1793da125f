package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the router's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_router_attempts_total",
				Help: "Backend attempts by outcome and failure classification",
			},
			[]string{"backend", "outcome", "kind"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_router_attempt_duration_seconds",
				Help:    "Backend attempt latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"backend"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_router_requests_total",
				Help: "Completion requests by final result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObserveAttempt(backend string, success bool, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
		kind = ""
	}
	m.attempts.WithLabelValues(backend, outcome, kind).Inc()
	m.attemptDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveRequest counts a finished request; result is "success", "exhausted"
// or "invalid".
func (m *Metrics) ObserveRequest(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}
