package models

import "time"

// AssetClass determines which validation rules, window sizes, and thresholds
// apply to a series.
type AssetClass string

const (
	ClassEquity   AssetClass = "equity"
	ClassCrypto   AssetClass = "crypto"
	ClassEconomic AssetClass = "economic"
)

// IsValid returns true if the asset class is one of the supported classes.
func (c AssetClass) IsValid() bool {
	switch c {
	case ClassEquity, ClassCrypto, ClassEconomic:
		return true
	default:
		return false
	}
}

// AnnualizationPeriod returns the number of observations per year used for
// annualized metrics: 252 trading days for equities, 365 calendar days for
// crypto and economic series.
func (c AssetClass) AnnualizationPeriod() int {
	if c == ClassEquity {
		return 252
	}
	return 365
}

// ObservationRecord is one raw input unit as delivered by the provider.
// Multiple records may share (AssetKey, Date) from repeated ingestion; the one
// with the latest IngestedAt wins (ties broken by largest ID).
type ObservationRecord struct {
	ID         int64      `json:"id"`
	AssetKey   string     `json:"asset_key"`
	AssetName  string     `json:"asset_name,omitempty"`
	Class      AssetClass `json:"class"`
	Date       time.Time  `json:"date"`
	Open       float64    `json:"open,omitempty"`
	High       float64    `json:"high,omitempty"`
	Low        float64    `json:"low,omitempty"`
	Close      float64    `json:"close"`
	Volume     float64    `json:"volume,omitempty"`
	MarketCap  float64    `json:"market_cap,omitempty"`
	IngestedAt time.Time  `json:"ingested_at"`
	Source     string     `json:"source"`
}

// QualityFlag marks a suspicious but not invalid canonical point.
type QualityFlag string

const (
	FlagFlatPrice       QualityFlag = "flat_price"
	FlagInvertedHighLow QualityFlag = "inverted_high_low"
)

// CanonicalSeriesPoint is the deduplicated, validated unit held in the
// TimeSeriesStore. Within one asset's sequence dates are strictly increasing
// and unique; a violation is a structural defect, not something to average
// away.
type CanonicalSeriesPoint struct {
	AssetKey  string
	AssetName string
	Class     AssetClass
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	MarketCap float64
	Source    string
	Flags     []QualityFlag
}

// HasFlag reports whether the point carries the given quality flag.
func (p *CanonicalSeriesPoint) HasFlag(f QualityFlag) bool {
	for _, have := range p.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// SeriesKey identifies one canonical point.
type SeriesKey struct {
	AssetKey string
	Date     time.Time
}
