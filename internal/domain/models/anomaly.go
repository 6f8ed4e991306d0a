package models

import "time"

// Severity classifies an anomaly score.
type Severity string

const (
	SeverityNormal   Severity = "Normal"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Rank orders severities for comparison (Normal < Moderate < High < Critical).
func (s Severity) Rank() int {
	switch s {
	case SeverityModerate:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// DetectionMode names how an anomaly score was produced.
type DetectionMode string

const (
	// ModeZScore scores normalized deviations against rolling history.
	ModeZScore DetectionMode = "zscore"
	// ModeMagnitude scores raw magnitudes against fixed thresholds; used when
	// rolling history is too short for z-scores.
	ModeMagnitude DetectionMode = "magnitude"
)

// Anomaly type tags.
const (
	TagExtremeReturn     = "Extreme Return"
	TagUnusualReturn     = "Unusual Return"
	TagVolumeSpike       = "Volume Spike"
	TagHighVolume        = "High Volume"
	TagLowVolume         = "Low Volume"
	TagPriceGap          = "Price Gap"
	TagExtremeOverbought = "Extreme Overbought"
	TagExtremeOversold   = "Extreme Oversold"
	TagOverbought        = "Overbought"
	TagOversold          = "Oversold"
	TagHighVolatility    = "High Volatility"
)

// AnomalyRecord is one retained anomaly observation derived from an
// IndicatorSnapshot plus rolling z-scores.
type AnomalyRecord struct {
	AssetKey  string
	AssetName string
	Class     AssetClass
	Date      time.Time

	Mode DetectionMode

	DailyReturn  *float64
	ReturnZScore *float64
	VolumeZScore *float64
	PriceGap     *float64

	Tags  []string
	Score float64

	Severity Severity
}

// HasTag reports whether the record carries the given anomaly tag.
func (a *AnomalyRecord) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
