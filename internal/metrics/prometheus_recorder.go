package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry         *prom.Registry
	exportDuration   *prom.HistogramVec
	stageDuration    *prom.HistogramVec
	exportOutcomes   *prom.CounterVec
	queueDepth       prom.Gauge
	artifactsEvicted prom.Counter
}

// NewPrometheusRecorder constructs and registers the export metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.exportDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "bookbinder",
		Name:      "export_duration_seconds",
		Help:      "Total export job duration by format",
		Buckets:   prom.DefBuckets,
	}, []string{"format"})
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "bookbinder",
		Name:      "export_stage_duration_seconds",
		Help:      "Duration of individual export stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.exportOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "bookbinder",
		Name:      "export_outcomes_total",
		Help:      "Export outcomes by format and final status",
	}, []string{"format", "outcome"})
	pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
		Namespace: "bookbinder",
		Name:      "export_queue_depth",
		Help:      "Number of export jobs waiting in the queue",
	})
	pr.artifactsEvicted = prom.NewCounter(prom.CounterOpts{
		Namespace: "bookbinder",
		Name:      "artifacts_evicted_total",
		Help:      "Artifacts removed by eviction or retention sweeps",
	})
	reg.MustRegister(pr.exportDuration, pr.stageDuration, pr.exportOutcomes, pr.queueDepth, pr.artifactsEvicted)
	return pr
}

// Handler returns the /metrics HTTP handler for this recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) ObserveExportDuration(format string, d time.Duration) {
	if p == nil || p.exportDuration == nil {
		return
	}
	p.exportDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncExportOutcome(format, outcome string) {
	if p == nil || p.exportOutcomes == nil {
		return
	}
	p.exportOutcomes.WithLabelValues(format, outcome).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) IncArtifactEvicted() {
	if p == nil || p.artifactsEvicted == nil {
		return
	}
	p.artifactsEvicted.Inc()
}
