package service

import (
	"FinSight/internal/domain/models"
)

// SnapshotCalculator derives the full indicator history for one asset's
// ordered canonical sequence in a single left-to-right pass.
type SnapshotCalculator interface {
	Compute(points []models.CanonicalSeriesPoint) []models.IndicatorSnapshot
}

// AnomalyScorer scores one asset's snapshot history and returns only the
// records above the retention gate.
type AnomalyScorer interface {
	Detect(points []models.CanonicalSeriesPoint, snapshots []models.IndicatorSnapshot) []models.AnomalyRecord
}

// Correlator computes pairwise return correlations across all tracked assets
// from a precomputed per-asset returns index.
type Correlator interface {
	Compute(index *models.ReturnsIndex) []models.CorrelationPair
}

// PerformanceReducer reduces each asset's snapshot history to one summary row
// and ranks peers within each asset class.
type PerformanceReducer interface {
	Summarize(histories map[string][]models.IndicatorSnapshot, index *models.ReturnsIndex) []models.PerformanceSummary
}
