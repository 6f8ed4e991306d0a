package models

import (
	"sort"
	"time"
)

// AssetReturns is one asset's daily return series with a date index for
// cross-asset alignment.
type AssetReturns struct {
	AssetKey string
	Class    AssetClass
	Dates    []time.Time
	byDate   map[int64]float64
}

// Get returns the daily return on the given date.
func (r *AssetReturns) Get(date time.Time) (float64, bool) {
	v, ok := r.byDate[date.Unix()]
	return v, ok
}

// Len returns the number of return observations.
func (r *AssetReturns) Len() int { return len(r.Dates) }

// ReturnsIndex is a read-only, per-batch index of every asset's daily returns,
// built once so the O(assets^2) correlation stage never re-scans source
// sequences. Asset iteration order is sorted and therefore deterministic.
type ReturnsIndex struct {
	byAsset map[string]*AssetReturns
	order   []string
	sorted  bool
}

// NewReturnsIndex creates an empty index.
func NewReturnsIndex() *ReturnsIndex {
	return &ReturnsIndex{byAsset: make(map[string]*AssetReturns)}
}

// Add appends one daily return observation. Dates must be added in ascending
// order per asset, which the calculator's left-to-right pass guarantees.
func (ix *ReturnsIndex) Add(assetKey string, class AssetClass, date time.Time, ret float64) {
	ar, ok := ix.byAsset[assetKey]
	if !ok {
		ar = &AssetReturns{
			AssetKey: assetKey,
			Class:    class,
			byDate:   make(map[int64]float64),
		}
		ix.byAsset[assetKey] = ar
		ix.order = append(ix.order, assetKey)
		ix.sorted = false
	}
	ar.Dates = append(ar.Dates, date)
	ar.byDate[date.Unix()] = ret
}

// Assets returns all asset keys in sorted order.
func (ix *ReturnsIndex) Assets() []string {
	if !ix.sorted {
		sort.Strings(ix.order)
		ix.sorted = true
	}
	return ix.order
}

// Asset returns one asset's return series, or nil if untracked.
func (ix *ReturnsIndex) Asset(assetKey string) *AssetReturns {
	return ix.byAsset[assetKey]
}

// AlignedReturns produces the date-aligned return vectors for two assets over
// the trailing maxObs observations of asset a. Both slices have equal length.
func (ix *ReturnsIndex) AlignedReturns(a, b string, maxObs int) ([]float64, []float64) {
	ra, rb := ix.byAsset[a], ix.byAsset[b]
	if ra == nil || rb == nil {
		return nil, nil
	}
	dates := ra.Dates
	if maxObs > 0 && len(dates) > maxObs {
		dates = dates[len(dates)-maxObs:]
	}
	xs := make([]float64, 0, len(dates))
	ys := make([]float64, 0, len(dates))
	for _, d := range dates {
		va, ok := ra.Get(d)
		if !ok {
			continue
		}
		vb, ok := rb.Get(d)
		if !ok {
			continue
		}
		xs = append(xs, va)
		ys = append(ys, vb)
	}
	return xs, ys
}
