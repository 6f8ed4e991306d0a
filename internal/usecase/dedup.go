package usecase

import (
	"sort"

	"FinSight/internal/domain/models"
	drepo "FinSight/internal/domain/repository"
)

// Drop reasons counted per batch.
const (
	DropMissingAssetKey  = "missing_asset_key"
	DropInvalidClass     = "invalid_class"
	DropZeroDate         = "zero_date"
	DropNonPositivePrice = "non_positive_price"
	DropInvertedHighLow  = "inverted_high_low"
	DropNegativeVolume   = "negative_volume"
)

// DedupStats summarizes one deduplication pass.
type DedupStats struct {
	In          int
	Duplicates  int
	Dropped     int
	Flagged     int
	DropReasons map[string]int
}

// Deduplicator collapses duplicate (asset, date) observations into one
// canonical record per key and drops invalid observations on the way in.
// Validation failures are counted, never propagated as errors.
type Deduplicator struct {
	metrics drepo.Metrics
}

func NewDeduplicator(metrics drepo.Metrics) *Deduplicator {
	return &Deduplicator{metrics: metrics}
}

// Dedup validates and collapses a raw batch into per-asset sequences sorted
// by date. Among duplicates the record with the latest ingested_at wins, ties
// broken by the largest ID, so re-running on the same batch picks the same
// canonical record every time.
func (d *Deduplicator) Dedup(records []models.ObservationRecord) (map[string][]models.CanonicalSeriesPoint, DedupStats) {
	stats := DedupStats{In: len(records), DropReasons: make(map[string]int)}

	type key struct {
		asset string
		date  int64
	}
	winners := make(map[key]*models.ObservationRecord)

	for i := range records {
		rec := &records[i]
		if reason := validateObservation(rec); reason != "" {
			stats.Dropped++
			stats.DropReasons[reason]++
			if d.metrics != nil {
				d.metrics.RecordDropped(reason)
			}
			continue
		}
		k := key{asset: rec.AssetKey, date: rec.Date.Unix()}
		cur, ok := winners[k]
		if !ok {
			winners[k] = rec
			continue
		}
		stats.Duplicates++
		if rec.IngestedAt.After(cur.IngestedAt) ||
			(rec.IngestedAt.Equal(cur.IngestedAt) && rec.ID > cur.ID) {
			winners[k] = rec
		}
	}

	series := make(map[string][]models.CanonicalSeriesPoint)
	for _, rec := range winners {
		p := canonicalize(rec)
		if len(p.Flags) > 0 {
			stats.Flagged++
		}
		series[rec.AssetKey] = append(series[rec.AssetKey], p)
	}
	for asset := range series {
		seq := series[asset]
		sort.Slice(seq, func(i, j int) bool { return seq[i].Date.Before(seq[j].Date) })
	}
	return series, stats
}

// validateObservation returns a drop reason, or "" when the record is usable.
// Economic series may carry negative values (rates, spreads); price floors
// only apply to equities and crypto.
func validateObservation(rec *models.ObservationRecord) string {
	if rec.AssetKey == "" {
		return DropMissingAssetKey
	}
	if !rec.Class.IsValid() {
		return DropInvalidClass
	}
	if rec.Date.IsZero() {
		return DropZeroDate
	}
	if rec.Class != models.ClassEconomic && rec.Close <= 0 {
		return DropNonPositivePrice
	}
	if rec.High != 0 && rec.Low != 0 && rec.High < rec.Low {
		return DropInvertedHighLow
	}
	if rec.Volume < 0 {
		return DropNegativeVolume
	}
	return ""
}

// canonicalize converts a winning record into its canonical point, attaching
// quality flags for suspicious but not impossible shapes.
func canonicalize(rec *models.ObservationRecord) models.CanonicalSeriesPoint {
	p := models.CanonicalSeriesPoint{
		AssetKey:  rec.AssetKey,
		AssetName: rec.AssetName,
		Class:     rec.Class,
		Date:      rec.Date,
		Open:      rec.Open,
		High:      rec.High,
		Low:       rec.Low,
		Close:     rec.Close,
		Volume:    rec.Volume,
		MarketCap: rec.MarketCap,
		Source:    rec.Source,
	}
	if rec.Open != 0 && rec.Open == rec.High && rec.High == rec.Low && rec.Low == rec.Close {
		p.Flags = append(p.Flags, models.FlagFlatPrice)
	}
	if rec.High != 0 && (rec.High < rec.Open || rec.High < rec.Close ||
		(rec.Low != 0 && (rec.Low > rec.Open || rec.Low > rec.Close))) {
		p.Flags = append(p.Flags, models.FlagInvertedHighLow)
	}
	return p
}
