package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry            *prometheus.Registry
	invocationsTotal    *prometheus.CounterVec
	invocationDuration  *prometheus.HistogramVec
	activeInvocations   prometheus.Gauge
	renditionsTotal     prometheus.Counter
	skipsTotal          prometheus.Counter
	renditionBytesTotal prometheus.Counter
	pixelsWrittenTotal  prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		invocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renditionforge_worker_invocations_total",
			Help: "Total pipeline invocations by final status.",
		}, []string{"status"}),
		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "renditionforge_worker_invocation_duration_seconds",
			Help:    "Total processing duration for each pipeline invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeInvocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "renditionforge_worker_active_invocations",
			Help: "Current number of invocations being processed.",
		}),
		renditionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renditionforge_worker_renditions_total",
			Help: "Total renditions stored across all invocations.",
		}),
		skipsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renditionforge_worker_skips_total",
			Help: "Total size jobs skipped for unsupported source types.",
		}),
		renditionBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renditionforge_worker_rendition_bytes_total",
			Help: "Total bytes written across all stored renditions.",
		}),
		pixelsWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renditionforge_worker_pixels_written_total",
			Help: "Total output pixels across all stored renditions.",
		}),
	}

	registry.MustRegister(
		m.invocationsTotal,
		m.invocationDuration,
		m.activeInvocations,
		m.renditionsTotal,
		m.skipsTotal,
		m.renditionBytesTotal,
		m.pixelsWrittenTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
