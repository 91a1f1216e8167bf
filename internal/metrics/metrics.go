// Package metrics exposes export job counters and latencies to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

const namespace = "intel_export"

// Metrics records finished export jobs. It implements export.Observer.
type Metrics struct {
	registry   *prometheus.Registry
	jobs       *prometheus.CounterVec
	items      *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	deliveries *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Export jobs by kind, format and outcome.",
		}, []string{"kind", "format", "outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Records written by successful exports.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Input records excluded by validation.",
		}, []string{"kind"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_total",
			Help:      "Bytes of generated payloads.",
		}, []string{"format"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of export jobs.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind", "format"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "E-mail notification attempts by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.jobs, m.items, m.dropped, m.bytes, m.duration, m.deliveries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveExport implements export.Observer.
func (m *Metrics) ObserveExport(_ context.Context, rec model.JobRecord) {
	kind := string(rec.Kind)
	format := string(rec.Format)
	if format == "" {
		format = "unknown"
	}

	outcome := "failure"
	if rec.Success {
		outcome = "success"
		m.items.WithLabelValues(kind).Add(float64(rec.ItemCount))
		m.bytes.WithLabelValues(format).Add(float64(rec.Bytes))
	}
	m.jobs.WithLabelValues(kind, format, outcome).Inc()
	m.duration.WithLabelValues(kind, format).Observe(rec.Duration.Seconds())
	if rec.Dropped > 0 {
		m.dropped.WithLabelValues(kind).Add(float64(rec.Dropped))
	}

	switch rec.Delivery {
	case model.DeliverySent:
		m.deliveries.WithLabelValues("sent").Inc()
	case model.DeliveryFailed:
		m.deliveries.WithLabelValues("failed").Inc()
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
