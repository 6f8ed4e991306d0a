package usecase

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"FinSight/internal/domain/models"
)

// SeriesStore holds, per asset, the ordered-by-date canonical sequence that
// all window operations read from. Writes happen during batch load; reads
// during the fan-out are lock-protected but contention-free since each worker
// reads a different asset.
type SeriesStore struct {
	mu     sync.RWMutex
	series map[string][]models.CanonicalSeriesPoint
}

func NewSeriesStore() *SeriesStore {
	return &SeriesStore{series: make(map[string][]models.CanonicalSeriesPoint)}
}

// Load replaces the store contents with deduplicated sequences, enforcing the
// strictly-increasing unique-date invariant. A violation means the upstream
// contract was broken and is returned as a hard error, not averaged away.
func (s *SeriesStore) Load(series map[string][]models.CanonicalSeriesPoint) error {
	for asset, seq := range series {
		for i := 1; i < len(seq); i++ {
			if !seq[i-1].Date.Before(seq[i].Date) {
				return fmt.Errorf("series %s: dates not strictly increasing at %s",
					asset, seq[i].Date.Format("2006-01-02"))
			}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = series
	return nil
}

// Put inserts one point, replacing any existing point on the same date and
// keeping the sequence ordered.
func (s *SeriesStore) Put(p models.CanonicalSeriesPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.series[p.AssetKey]
	i := sort.Search(len(seq), func(i int) bool { return !seq[i].Date.Before(p.Date) })
	if i < len(seq) && seq[i].Date.Equal(p.Date) {
		seq[i] = p
	} else {
		seq = append(seq, models.CanonicalSeriesPoint{})
		copy(seq[i+1:], seq[i:])
		seq[i] = p
	}
	s.series[p.AssetKey] = seq
}

// Assets returns all tracked asset keys, sorted.
func (s *SeriesStore) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.series))
	for k := range s.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Series returns one asset's full ordered sequence.
func (s *SeriesStore) Series(assetKey string) []models.CanonicalSeriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[assetKey]
}

// LastK returns up to k points with date <= asOf, newest last.
func (s *SeriesStore) LastK(assetKey string, k int, asOf time.Time) []models.CanonicalSeriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.series[assetKey]
	end := sort.Search(len(seq), func(i int) bool { return seq[i].Date.After(asOf) })
	start := end - k
	if k <= 0 || start < 0 {
		start = 0
	}
	return seq[start:end]
}

// Len returns the number of points held for one asset.
func (s *SeriesStore) Len(assetKey string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[assetKey])
}
