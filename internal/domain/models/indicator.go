package models

import "time"

// CrossSignal is the categorical moving-average-cross state.
type CrossSignal string

const (
	CrossGolden  CrossSignal = "Golden Cross"
	CrossDeath   CrossSignal = "Death Cross"
	CrossNeutral CrossSignal = "Neutral"
)

// RSIRegime is the categorical RSI state at the 30/70 thresholds, with
// extreme bands at 20/80.
type RSIRegime string

const (
	RSIOverbought        RSIRegime = "Overbought"
	RSIOversold          RSIRegime = "Oversold"
	RSINeutral           RSIRegime = "Neutral"
	RSIExtremeOverbought RSIRegime = "Extreme Overbought"
	RSIExtremeOversold   RSIRegime = "Extreme Oversold"
)

// IndicatorSnapshot holds every derived metric for one (asset, date).
// Produced once by the calculator and immutable thereafter; a recompute
// replaces whole snapshots, never mutates them. Nil pointers mean "not yet
// computable" from the available history, distinct from zero.
type IndicatorSnapshot struct {
	AssetKey string
	Class    AssetClass
	Date     time.Time

	Close  float64
	Volume float64

	DailyReturn *float64

	// Moving averages keyed by window size (price), e.g. 7/20/50/200.
	MovingAvg map[int]*float64
	VolumeMA  *float64

	Volatility    *float64
	RSI           *float64
	BollingerMid  *float64
	BollingerUp   *float64
	BollingerLow  *float64
	SharpeRatio   *float64
	MaxDrawdown   *float64

	MASignal  CrossSignal
	RSISignal RSIRegime
}

// MA returns the moving average for the given window, or nil when it was not
// configured or not yet computable.
func (s *IndicatorSnapshot) MA(window int) *float64 {
	if s.MovingAvg == nil {
		return nil
	}
	return s.MovingAvg[window]
}
