package jobs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type trackerMetrics struct {
	activePollers prometheus.Gauge
	polls         *prometheus.CounterVec
}

var (
	metricsInstance *trackerMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newTrackerMetrics() *trackerMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &trackerMetrics{
			activePollers: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "ap_job_pollers_active",
				Help: "Current number of ingestion jobs being polled",
			}),
			polls: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "ap_job_polls_total",
				Help: "Job status polls by outcome",
			}, []string{"outcome"}),
		}
	})
	return metricsInstance
}

// resetMetricsForTesting swaps in a fresh registry and returns it.
func resetMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
	return reg
}
