// Package metrics provides Prometheus metrics export for the decision engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports pipeline metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	stageLatency  *prometheus.HistogramVec
	pipelineRuns  *prometheus.CounterVec
	searchErrors  prometheus.Counter
	phraseErrors  prometheus.Counter
	prototypeSize prometheus.Gauge
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}
}

// NewExporter creates a new Prometheus metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopsense",
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of each pipeline stage.",
		Buckets:   cfg.LatencyBuckets,
	}, []string{"stage"})

	e.pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopsense",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs by final state.",
	}, []string{"final_state"})

	e.searchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shopsense",
		Name:      "search_errors_total",
		Help:      "Similarity-search calls that failed or timed out.",
	})

	e.phraseErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shopsense",
		Name:      "phrase_errors_total",
		Help:      "Prose-generation calls that fell back to the template.",
	})

	e.prototypeSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "shopsense",
		Name:      "prototype_table_size",
		Help:      "Number of active (category, brand) prototypes.",
	})

	registry.MustRegister(e.stageLatency, e.pipelineRuns, e.searchErrors, e.phraseErrors, e.prototypeSize)

	return e
}

// ObserveStage records the duration of one pipeline stage.
func (e *Exporter) ObserveStage(stage string, d time.Duration) {
	if e == nil {
		return
	}
	e.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records a completed pipeline run by final state.
func (e *Exporter) ObserveRun(finalState string) {
	if e == nil {
		return
	}
	e.pipelineRuns.WithLabelValues(finalState).Inc()
}

// IncSearchError counts a failed similarity-search call.
func (e *Exporter) IncSearchError() {
	if e == nil {
		return
	}
	e.searchErrors.Inc()
}

// IncPhraseError counts a prose-generation fallback.
func (e *Exporter) IncPhraseError() {
	if e == nil {
		return
	}
	e.phraseErrors.Inc()
}

// SetPrototypeCount records the active prototype table size.
func (e *Exporter) SetPrototypeCount(n int) {
	if e == nil {
		return
	}
	e.prototypeSize.Set(float64(n))
}

// Handler returns an HTTP handler exposing the metrics for the embedding
// process to mount.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
