package documents

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	openHandles prometheus.Gauge
	loads       *prometheus.CounterVec
}

var (
	metricsInstance *registryMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newRegistryMetrics() *registryMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &registryMetrics{
			openHandles: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "ap_document_handles_open",
				Help: "Document handles currently held by sessions",
			}),
			loads: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "ap_document_loads_total",
				Help: "Document loads by result",
			}, []string{"result"}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
	return reg
}
