package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the evaluation pipeline.
type Metrics struct {
	EvaluationsTotal     prometheus.Counter
	EvaluationErrors     *prometheus.CounterVec // labels: stage={content,simulation,deficit,integrate}
	RecordsProduced      *prometheus.CounterVec // labels: sink
	SinkErrors           *prometheus.CounterVec // labels: sink
	ObservationsIngested prometheus.Counter
	ObservationsRejected prometheus.Counter
	PipelineRunning      prometheus.Gauge

	EvaluationDuration prometheus.Histogram
	RootZoneDates      prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_water",
			Name:      "evaluations_total",
			Help:      "Total completed root-zone evaluations.",
		}),
		EvaluationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_water",
			Name:      "evaluation_errors_total",
			Help:      "Failed evaluations by pipeline stage.",
		}, []string{"stage"}),
		RecordsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_water",
			Name:      "records_produced_total",
			Help:      "Root-zone records written, by sink.",
		}, []string{"sink"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_water",
			Name:      "sink_errors_total",
			Help:      "Failed sink writes, including calls rejected by an open breaker.",
		}, []string{"sink"}),
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_water",
			Name:      "observations_ingested_total",
			Help:      "Sensor readings accepted from MQTT.",
		}),
		ObservationsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_water",
			Name:      "observations_rejected_total",
			Help:      "Sensor readings dropped as malformed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "soil_water",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soil_water",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a complete load-convert-integrate-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RootZoneDates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soil_water",
			Name:      "rootzone_dates",
			Help:      "Number of observation dates integrated per evaluation.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200, 366},
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationErrors,
		m.RecordsProduced,
		m.SinkErrors,
		m.ObservationsIngested,
		m.ObservationsRejected,
		m.PipelineRunning,
		m.EvaluationDuration,
		m.RootZoneDates,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EvaluationsTotal:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "soil_water", Name: "evaluations_total"}),
		EvaluationErrors:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "soil_water", Name: "evaluation_errors_total"}, []string{"stage"}),
		RecordsProduced:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "soil_water", Name: "records_produced_total"}, []string{"sink"}),
		SinkErrors:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "soil_water", Name: "sink_errors_total"}, []string{"sink"}),
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "soil_water", Name: "observations_ingested_total"}),
		ObservationsRejected: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "soil_water", Name: "observations_rejected_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "soil_water", Name: "pipeline_running"}),
		EvaluationDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "soil_water", Name: "evaluation_duration_seconds"}),
		RootZoneDates:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "soil_water", Name: "rootzone_dates"}),
	}
}
