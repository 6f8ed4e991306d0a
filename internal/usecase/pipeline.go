package usecase

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"FinSight/internal/analytics/anomaly"
	"FinSight/internal/analytics/correlation"
	"FinSight/internal/analytics/indicators"
	"FinSight/internal/analytics/performance"
	"FinSight/internal/domain/models"
	drepo "FinSight/internal/domain/repository"
	"FinSight/pkg/logger"
)

// PipelineConfig bounds one analysis run.
type PipelineConfig struct {
	Start time.Time
	End   time.Time

	CorrelationMethod models.CorrelationMethod
	RiskFreeRate      float64
	ReferenceAssets   map[models.AssetClass]string

	// Tuning overrides the per-class window sizes and anomaly thresholds.
	// Classes without an entry keep their defaults.
	Tuning map[models.AssetClass]ClassTuning

	// Workers caps the per-asset fan-out; 0 means NumCPU.
	Workers int
}

// ClassTuning adjusts the window sizes and anomaly thresholds for one asset
// class. Zero-valued fields keep the class default.
type ClassTuning struct {
	MAWindows        []int
	ShortMAWindow    int
	LongMAWindow     int
	VolumeWindow     int
	VolatilityWindow int
	RSIPeriod        int
	BollingerWindow  int

	ReturnZWindow       int
	VolumeZWindow       int
	MinZObservations    int
	VolatilityThreshold float64
	GapThreshold        float64
}

func (t ClassTuning) applyIndicators(cfg *indicators.Config) {
	if len(t.MAWindows) > 0 {
		cfg.MAWindows = t.MAWindows
	}
	if t.ShortMAWindow > 0 {
		cfg.ShortMAWindow = t.ShortMAWindow
	}
	if t.LongMAWindow > 0 {
		cfg.LongMAWindow = t.LongMAWindow
	}
	if t.VolumeWindow > 0 {
		cfg.VolumeWindow = t.VolumeWindow
	}
	if t.VolatilityWindow > 0 {
		cfg.VolatilityWindow = t.VolatilityWindow
	}
	if t.RSIPeriod > 0 {
		cfg.RSIPeriod = t.RSIPeriod
	}
	if t.BollingerWindow > 0 {
		cfg.BollingerWindow = t.BollingerWindow
	}
}

func (t ClassTuning) applyAnomaly(cfg *anomaly.Config) {
	if t.ReturnZWindow > 0 {
		cfg.ReturnZWindow = t.ReturnZWindow
	}
	if t.VolumeZWindow > 0 {
		cfg.VolumeZWindow = t.VolumeZWindow
	}
	if t.MinZObservations > 0 {
		cfg.MinZObservations = t.MinZObservations
	}
	if t.VolatilityThreshold > 0 {
		cfg.VolatilityThreshold = t.VolatilityThreshold
	}
	if t.GapThreshold > 0 {
		cfg.GapThreshold = t.GapThreshold
	}
}

// Pipeline runs the full-rebuild analytics batch: fetch, dedup, per-asset
// indicator and anomaly fan-out, cross-asset correlation, performance
// reduction, then a replace-on-completion write. Re-running on identical
// input produces identical output; a cancelled run leaves the previous run
// visible.
type Pipeline struct {
	provider drepo.ObservationProvider
	results  drepo.ResultStore
	alerts   drepo.AlertPublisher
	metrics  drepo.Metrics
	log      *logger.Logger
	cfg      PipelineConfig
}

func NewPipeline(
	provider drepo.ObservationProvider,
	results drepo.ResultStore,
	alerts drepo.AlertPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = 0.045
	}
	if cfg.CorrelationMethod == "" {
		cfg.CorrelationMethod = models.MethodPearson
	}
	return &Pipeline{
		provider: provider,
		results:  results,
		alerts:   alerts,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
	}
}

type assetResult struct {
	snapshots []models.IndicatorSnapshot
	anomalies []models.AnomalyRecord
}

// Run executes one batch and returns its report. The report carries aggregate
// drop and flag counts; individual validation failures never surface as
// errors.
func (p *Pipeline) Run(ctx context.Context) (*models.BatchReport, error) {
	start := time.Now()
	runID := fmt.Sprintf("run-%s", start.UTC().Format("20060102T150405.000000000"))

	// The configured start bounds emission only. Rolling windows need the
	// prior history, so the fetch stays open below and boundSnapshots trims
	// the output afterwards.
	records, err := p.provider.FetchBatch(ctx, time.Time{}, p.cfg.End)
	if err != nil {
		p.metrics.RecordError("pipeline_fetch")
		return nil, fmt.Errorf("fetch batch: %w", err)
	}

	series, stats := NewDeduplicator(p.metrics).Dedup(records)
	store := NewSeriesStore()
	if err := store.Load(series); err != nil {
		p.metrics.RecordError("pipeline_load")
		return nil, fmt.Errorf("load series: %w", err)
	}
	assets := store.Assets()

	p.log.Info("batch loaded",
		logger.String("run_id", runID),
		logger.Int("records_in", stats.In),
		logger.Int("assets", len(assets)),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("dropped", stats.Dropped))

	// Per-asset sequences are independent; the fan-out shares nothing but
	// read-only access to each asset's own sequence. Results land in a
	// preallocated slot per asset, so no locks are needed.
	results := make([]assetResult, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points := store.Series(asset)
			class := points[0].Class

			icfg := indicators.DefaultConfig(class)
			icfg.RiskFreeRate = p.cfg.RiskFreeRate
			acfg := anomaly.DefaultConfig(class)
			if tuning, ok := p.cfg.Tuning[class]; ok {
				tuning.applyIndicators(&icfg)
				tuning.applyAnomaly(&acfg)
			}
			snaps := indicators.New(icfg).Compute(points)

			results[i] = assetResult{
				snapshots: snaps,
				anomalies: anomaly.New(acfg).Detect(points, snaps),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.metrics.RecordError("pipeline_fanout")
		return nil, fmt.Errorf("per-asset fan-out: %w", err)
	}

	// The returns index is built once, in sorted asset order, then shared
	// read-only by the correlation and performance stages.
	index := models.NewReturnsIndex()
	histories := make(map[string][]models.IndicatorSnapshot, len(assets))
	names := make(map[string]string, len(assets))
	run := &drepo.RunResults{}
	for i, asset := range assets {
		for j := range results[i].snapshots {
			s := &results[i].snapshots[j]
			if s.DailyReturn != nil {
				index.Add(asset, s.Class, s.Date, *s.DailyReturn)
			}
		}
		histories[asset] = results[i].snapshots
		names[asset] = store.Series(asset)[0].AssetName
		run.Snapshots = append(run.Snapshots, p.boundSnapshots(results[i].snapshots)...)
		run.Anomalies = append(run.Anomalies, p.boundAnomalies(results[i].anomalies)...)
	}

	asOf := p.cfg.End
	if asOf.IsZero() {
		asOf = start.UTC().Truncate(24 * time.Hour)
	}
	ccfg := correlation.DefaultConfig(asOf)
	ccfg.Method = p.cfg.CorrelationMethod
	run.Correlations = correlation.New(ccfg).Compute(index)

	// Rankings need every summary materialized, so this runs after the
	// fan-out has fully joined.
	pcfg := performance.DefaultConfig()
	pcfg.RiskFreeRate = p.cfg.RiskFreeRate
	pcfg.ReferenceAssets = p.cfg.ReferenceAssets
	run.Summaries = performance.New(pcfg).Summarize(histories, index)
	for i := range run.Summaries {
		run.Summaries[i].AssetName = names[run.Summaries[i].AssetKey]
	}

	if err := p.results.WriteRun(ctx, runID, run); err != nil {
		p.metrics.RecordError("pipeline_write")
		return nil, fmt.Errorf("write run %s: %w", runID, err)
	}
	if err := p.results.ActivateRun(ctx, runID); err != nil {
		p.metrics.RecordError("pipeline_activate")
		return nil, fmt.Errorf("activate run %s: %w", runID, err)
	}

	if p.alerts != nil && len(run.Anomalies) > 0 {
		if err := p.alerts.PublishAnomalies(ctx, run.Anomalies); err != nil {
			// Alerting is best-effort; the run itself already committed.
			p.metrics.RecordError("pipeline_alerts")
			p.log.Warn("publish anomaly alerts", logger.Error(err))
		}
	}

	report := &models.BatchReport{
		RunID:               runID,
		StartedAt:           start.UTC(),
		Duration:            time.Since(start),
		RecordsIn:           stats.In,
		Duplicates:          stats.Duplicates,
		DroppedInvalid:      stats.Dropped,
		Flagged:             stats.Flagged,
		DropReasons:         stats.DropReasons,
		Assets:              len(assets),
		Snapshots:           len(run.Snapshots),
		Anomalies:           len(run.Anomalies),
		Correlations:        len(run.Correlations),
		Summaries:           len(run.Summaries),
		AnomaliesBySeverity: countBySeverity(run.Anomalies),
	}
	p.metrics.RecordRun(report)
	p.metrics.RecordLatency("pipeline_run", time.Since(start).Seconds())
	p.log.Info("batch complete",
		logger.String("run_id", runID),
		logger.Int("snapshots", report.Snapshots),
		logger.Int("anomalies", report.Anomalies),
		logger.Int("correlations", report.Correlations),
		logger.Duration("took", report.Duration))

	return report, nil
}

// boundSnapshots filters output emission to the configured date range. The
// full history still fed the windows; only emission is bounded.
func (p *Pipeline) boundSnapshots(snaps []models.IndicatorSnapshot) []models.IndicatorSnapshot {
	if p.cfg.Start.IsZero() && p.cfg.End.IsZero() {
		return snaps
	}
	out := make([]models.IndicatorSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if p.inRange(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

func (p *Pipeline) boundAnomalies(recs []models.AnomalyRecord) []models.AnomalyRecord {
	if p.cfg.Start.IsZero() && p.cfg.End.IsZero() {
		return recs
	}
	out := make([]models.AnomalyRecord, 0, len(recs))
	for _, r := range recs {
		if p.inRange(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

func (p *Pipeline) inRange(date time.Time) bool {
	if !p.cfg.Start.IsZero() && date.Before(p.cfg.Start) {
		return false
	}
	if !p.cfg.End.IsZero() && date.After(p.cfg.End) {
		return false
	}
	return true
}

func countBySeverity(recs []models.AnomalyRecord) map[models.Severity]int {
	if len(recs) == 0 {
		return nil
	}
	counts := make(map[models.Severity]int)
	for _, r := range recs {
		counts[r.Severity]++
	}
	return counts
}
