package metrics

import (
	"FinSight/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec

	runsTotal    prometheus.Counter
	runDuration  prometheus.Histogram
	runSnapshots prometheus.Gauge
	runAnomalies *prometheus.GaugeVec
	runAssets    prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_observations_total",
				Help: "Raw observations accepted from each ingestion source",
			},
			[]string{"source", "asset"},
		),
		dropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_observations_dropped_total",
				Help: "Observations dropped during validation, by rule",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		runsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "finsight_pipeline_runs_total",
				Help: "Completed analytics pipeline runs",
			},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finsight_pipeline_run_seconds",
				Help:    "Wall time of a full pipeline run",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		runSnapshots: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "finsight_pipeline_run_snapshots",
				Help: "Indicator snapshots produced by the last run",
			},
		),
		runAnomalies: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finsight_pipeline_run_anomalies",
				Help: "Anomalies retained by the last run, by severity",
			},
			[]string{"severity"},
		),
		runAssets: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "finsight_pipeline_run_assets",
				Help: "Assets processed by the last run",
			},
		),
	}
}

// RecordObservation records one accepted raw observation.
func (r *Recorder) RecordObservation(source, assetKey string) {
	r.observations.WithLabelValues(source, assetKey).Inc()
}

// RecordDropped records a validation drop.
func (r *Recorder) RecordDropped(reason string) {
	r.dropped.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordRun records the accounting of one completed pipeline run.
func (r *Recorder) RecordRun(report *models.BatchReport) {
	if report == nil {
		return
	}
	r.runsTotal.Inc()
	r.runDuration.Observe(report.Duration.Seconds())
	r.runSnapshots.Set(float64(report.Snapshots))
	r.runAssets.Set(float64(report.Assets))
	// Drops were already counted per record during dedup.
	for sev, n := range report.AnomaliesBySeverity {
		r.runAnomalies.WithLabelValues(string(sev)).Set(float64(n))
	}
}
