package anomaly

import (
	"math"

	"FinSight/internal/analytics/window"
	"FinSight/internal/domain/models"
	domsvc "FinSight/internal/domain/service"
)

var _ domsvc.AnomalyScorer = (*Detector)(nil)

// Config holds the per-class detection thresholds and windows.
type Config struct {
	ReturnZWindow int
	VolumeZWindow int

	// MinZObservations is how many returns must be in the rolling window
	// before z-scores are trusted; shorter histories fall back to the
	// magnitude mode.
	MinZObservations int

	VolatilityThreshold float64
	GapThreshold        float64

	MinSeverity models.Severity
}

// DefaultConfig returns the conventional thresholds for an asset class:
// equities z-score returns over 60 days and flag volatility above 5%, crypto
// uses 30 days and a 15% volatility bar.
func DefaultConfig(class models.AssetClass) Config {
	cfg := Config{
		ReturnZWindow:       60,
		VolumeZWindow:       30,
		MinZObservations:    30,
		VolatilityThreshold: 0.05,
		GapThreshold:        0.05,
		MinSeverity:         models.SeverityModerate,
	}
	if class == models.ClassCrypto {
		cfg.ReturnZWindow = 30
		cfg.VolatilityThreshold = 0.15
	}
	return cfg
}

// Detector scores one asset's indicator history for anomalies. It prefers
// normalized z-score deviations; while the rolling history is still too short
// for stable z-scores it scores raw magnitudes against fixed thresholds
// instead, so early history is covered rather than silent.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	if cfg.ReturnZWindow < 2 {
		cfg.ReturnZWindow = 2
	}
	if cfg.VolumeZWindow < 2 {
		cfg.VolumeZWindow = 2
	}
	if cfg.MinSeverity == "" {
		cfg.MinSeverity = models.SeverityModerate
	}
	return &Detector{cfg: cfg}
}

// Detect walks points and snapshots in lockstep (both ordered by date, same
// length) and returns the records at or above the configured severity gate.
// Records that score Normal are discarded, not flagged.
func (d *Detector) Detect(points []models.CanonicalSeriesPoint, snaps []models.IndicatorSnapshot) []models.AnomalyRecord {
	if len(points) != len(snaps) {
		return nil
	}

	returnEng := window.New(d.cfg.ReturnZWindow)
	volumeEng := window.New(d.cfg.VolumeZWindow)

	var out []models.AnomalyRecord
	for i := range snaps {
		snap := &snaps[i]

		var rz, vz, gap *float64
		if snap.DailyReturn != nil {
			rz = zScore(returnEng.Push(*snap.DailyReturn), *snap.DailyReturn)
		}
		vz = zScore(volumeEng.Push(snap.Volume), snap.Volume)
		if i > 0 && points[i].Open > 0 && points[i-1].Close > 0 {
			g := (points[i].Open - points[i-1].Close) / points[i-1].Close
			gap = &g
		}

		rec := models.AnomalyRecord{
			AssetKey:     snap.AssetKey,
			AssetName:    points[i].AssetName,
			Class:        snap.Class,
			Date:         snap.Date,
			DailyReturn:  snap.DailyReturn,
			ReturnZScore: rz,
			VolumeZScore: vz,
			PriceGap:     gap,
		}

		if returnEng.Count() >= d.cfg.MinZObservations {
			rec.Mode = models.ModeZScore
			d.scoreZ(&rec, snap)
		} else {
			rec.Mode = models.ModeMagnitude
			rec.ReturnZScore = nil
			rec.VolumeZScore = nil
			d.scoreMagnitude(&rec, snap)
		}

		if rec.Severity.Rank() >= d.cfg.MinSeverity.Rank() && rec.Severity != models.SeverityNormal {
			out = append(out, rec)
		}
	}
	return out
}

// scoreZ tags normalized deviations and computes the composite
// (|return_z| + |volume_z| + |gap|*20) / 3. Severity bands at 1/2/3.
func (d *Detector) scoreZ(rec *models.AnomalyRecord, snap *models.IndicatorSnapshot) {
	rz := absOrZero(rec.ReturnZScore)
	gap := absOrZero(rec.PriceGap)

	switch {
	case rz > 3:
		rec.Tags = append(rec.Tags, models.TagExtremeReturn)
	case rz > 2:
		rec.Tags = append(rec.Tags, models.TagUnusualReturn)
	}
	if rec.VolumeZScore != nil {
		switch vz := *rec.VolumeZScore; {
		case vz > 3:
			rec.Tags = append(rec.Tags, models.TagVolumeSpike)
		case vz > 2:
			rec.Tags = append(rec.Tags, models.TagHighVolume)
		case vz < -2:
			rec.Tags = append(rec.Tags, models.TagLowVolume)
		}
	}
	if gap > d.cfg.GapThreshold {
		rec.Tags = append(rec.Tags, models.TagPriceGap)
	}
	rec.Tags = append(rec.Tags, momentumTags(snap)...)
	if volTag := volatilityTag(snap, d.cfg.VolatilityThreshold); volTag != "" {
		rec.Tags = append(rec.Tags, volTag)
	}

	rec.Score = (rz + absOrZero(rec.VolumeZScore) + gap*20) / 3
	switch {
	case rec.Score > 3:
		rec.Severity = models.SeverityCritical
	case rec.Score > 2:
		rec.Severity = models.SeverityHigh
	case rec.Score > 1:
		rec.Severity = models.SeverityModerate
	default:
		rec.Severity = models.SeverityNormal
	}
}

// scoreMagnitude scores return, volatility, and RSI deviation on 0..10 scales
// and averages them. A 20% daily move, volatility at twice the class
// threshold, and RSI at either extreme each saturate their sub-score.
// Severity bands at 1.5/2/3, tighter than the z mode's 1 since raw sub-scores
// run hotter than z-scores on short histories.
func (d *Detector) scoreMagnitude(rec *models.AnomalyRecord, snap *models.IndicatorSnapshot) {
	var retScore, volScore, rsiScore float64

	r := absOrZero(rec.DailyReturn)
	retScore = math.Min(r/0.02, 10)
	switch {
	case r > 0.10:
		rec.Tags = append(rec.Tags, models.TagExtremeReturn)
	case r > 0.05:
		rec.Tags = append(rec.Tags, models.TagUnusualReturn)
	}

	if snap.Volatility != nil && d.cfg.VolatilityThreshold > 0 {
		volScore = math.Min(*snap.Volatility/d.cfg.VolatilityThreshold*5, 10)
	}
	if snap.RSI != nil {
		rsiScore = math.Min(math.Abs(*snap.RSI-50)/5, 10)
	}
	rec.Tags = append(rec.Tags, momentumTags(snap)...)
	if volTag := volatilityTag(snap, d.cfg.VolatilityThreshold); volTag != "" {
		rec.Tags = append(rec.Tags, volTag)
	}

	rec.Score = (retScore + volScore + rsiScore) / 3
	switch {
	case rec.Score > 3:
		rec.Severity = models.SeverityCritical
	case rec.Score > 2:
		rec.Severity = models.SeverityHigh
	case rec.Score > 1.5:
		rec.Severity = models.SeverityModerate
	default:
		rec.Severity = models.SeverityNormal
	}
}

func momentumTags(snap *models.IndicatorSnapshot) []string {
	if snap.RSI == nil {
		return nil
	}
	switch rsi := *snap.RSI; {
	case rsi > 90:
		return []string{models.TagExtremeOverbought}
	case rsi > 70:
		return []string{models.TagOverbought}
	case rsi < 10:
		return []string{models.TagExtremeOversold}
	case rsi < 30:
		return []string{models.TagOversold}
	}
	return nil
}

func volatilityTag(snap *models.IndicatorSnapshot, threshold float64) string {
	if snap.Volatility != nil && threshold > 0 && *snap.Volatility > threshold {
		return models.TagHighVolatility
	}
	return ""
}

// zScore returns (value - mean) / stddev against the window the value was just
// pushed into, nil while the stddev is undefined or zero. The window includes
// the value itself, so an extreme day scores against statistics it has already
// shifted and reads somewhat lower than it would against trailing-only stats.
func zScore(s window.Stats, value float64) *float64 {
	if s.StdDev == nil || *s.StdDev == 0 {
		return nil
	}
	z := (value - s.Mean) / *s.StdDev
	return &z
}

func absOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Abs(*v)
}
