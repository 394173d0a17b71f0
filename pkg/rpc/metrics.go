package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of the request counter.
const (
	outcomeSuccess = "success"
)

// Metrics contains the Prometheus metrics recorded by Client
type Metrics struct {
	// Requests counts finished calls by action and outcome. The outcome is
	// "success" or the ErrorKind of the failure.
	Requests *prometheus.CounterVec

	// RequestDuration observes the time spent per call, including
	// validation and transport.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics initializes and registers the client metrics with the default
// registerer
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers the client metrics with a
// custom registry
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dscipc_requests_total",
				Help: "The total number of wallet daemon calls by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dscipc_request_duration_seconds",
				Help:    "Duration of wallet daemon calls",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"action"},
		),
	}
}

// observe records one finished call. A nil receiver records nothing.
func (m *Metrics) observe(action string, started time.Time, err error) {
	if m == nil {
		return
	}

	outcome := outcomeSuccess
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = string(KindProtocolFailure)
		}
	}

	m.Requests.WithLabelValues(action, outcome).Inc()
	m.RequestDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}
