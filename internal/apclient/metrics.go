package apclient

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	schemaFailures  *prometheus.CounterVec
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	metricsInstance *clientMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newClientMetrics() *clientMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &clientMetrics{
			requestDuration: promauto.With(defaultRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "ap_backend_request_duration_seconds",
				Help:    "Latency of AP backend calls by operation",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			}, []string{"operation"}),
			requests: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "ap_backend_requests_total",
				Help: "AP backend calls by operation and outcome",
			}, []string{"operation", "outcome"}),
			schemaFailures: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "ap_backend_schema_failures_total",
				Help: "Backend responses rejected by schema validation",
			}, []string{"operation"}),
		}
	})
	return metricsInstance
}

func (m *clientMetrics) observe(op, outcome string, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	m.requests.WithLabelValues(op, outcome).Inc()
}

// resetMetricsForTesting swaps in a fresh registry. Only called from tests.
func resetMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
	return reg
}
