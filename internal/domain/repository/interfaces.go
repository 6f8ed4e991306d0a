package repository

import (
	"context"
	"time"

	"FinSight/internal/domain/models"
)

// ObservationProvider supplies raw observation batches for an analysis date
// range. The provider, not this core, owns retries/backoff against upstream
// data APIs.
type ObservationProvider interface {
	FetchBatch(ctx context.Context, from, to time.Time) ([]models.ObservationRecord, error)
}

// RawObservationSink lands raw records delivered over the ingestion topic so
// the provider can serve them back to the pipeline.
type RawObservationSink interface {
	Store(ctx context.Context, rec *models.ObservationRecord) error
	StoreBatch(ctx context.Context, recs []*models.ObservationRecord) error
	Health(ctx context.Context) error
	Close() error
}

// ResultStore persists one run's full output. WriteRun stores everything under
// runID; ActivateRun flips the visible run pointer only after a complete
// write, so an abandoned run leaves no partial output visible.
type ResultStore interface {
	WriteRun(ctx context.Context, runID string, res *RunResults) error
	ActivateRun(ctx context.Context, runID string) error
	Close() error
}

// RunResults bundles the four result sets produced by one pipeline run.
type RunResults struct {
	Snapshots    []models.IndicatorSnapshot
	Anomalies    []models.AnomalyRecord
	Correlations []models.CorrelationPair
	Summaries    []models.PerformanceSummary
}

// ResultReader serves the active run's results as read-only tabular views.
type ResultReader interface {
	Indicators(ctx context.Context, assetKey string, from, to time.Time, limit int) ([]models.IndicatorSnapshot, error)
	Anomalies(ctx context.Context, assetKey string, since time.Time, minSeverity models.Severity, limit int) ([]models.AnomalyRecord, error)
	Correlations(ctx context.Context, assetKey string, minAbs float64, limit int) ([]models.CorrelationPair, error)
	Performance(ctx context.Context, class models.AssetClass, limit int) ([]models.PerformanceSummary, error)
}

// AlertPublisher pushes retained anomalies to downstream consumers.
type AlertPublisher interface {
	PublishAnomalies(ctx context.Context, anomalies []models.AnomalyRecord) error
	Close() error
}

// Metrics records pipeline and ingestion telemetry.
type Metrics interface {
	RecordObservation(source, assetKey string)
	RecordDropped(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRun(report *models.BatchReport)
}
