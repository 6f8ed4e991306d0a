package usecase

import (
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

func point(asset string, day int, close float64) models.CanonicalSeriesPoint {
	return models.CanonicalSeriesPoint{
		AssetKey: asset,
		Class:    models.ClassEquity,
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Close:    close,
	}
}

func TestLoadRejectsOutOfOrderDates(t *testing.T) {
	store := NewSeriesStore()
	err := store.Load(map[string][]models.CanonicalSeriesPoint{
		"AAA": {point("AAA", 1, 101), point("AAA", 0, 100)},
	})
	if err == nil {
		t.Fatal("out-of-order dates must be a hard error")
	}
}

func TestLoadRejectsDuplicateDates(t *testing.T) {
	store := NewSeriesStore()
	err := store.Load(map[string][]models.CanonicalSeriesPoint{
		"AAA": {point("AAA", 0, 100), point("AAA", 0, 101)},
	})
	if err == nil {
		t.Fatal("duplicate dates must be a hard error")
	}
}

func TestPutKeepsOrderAndReplaces(t *testing.T) {
	store := NewSeriesStore()
	store.Put(point("AAA", 2, 102))
	store.Put(point("AAA", 0, 100))
	store.Put(point("AAA", 1, 101))
	store.Put(point("AAA", 1, 111)) // replace, not append

	seq := store.Series("AAA")
	if len(seq) != 3 {
		t.Fatalf("expected 3 points, got %d", len(seq))
	}
	want := []float64{100, 111, 102}
	for i, w := range want {
		if seq[i].Close != w {
			t.Fatalf("point %d: got close %v, want %v", i, seq[i].Close, w)
		}
	}
}

func TestLastKAsOfDate(t *testing.T) {
	store := NewSeriesStore()
	for day := 0; day < 10; day++ {
		store.Put(point("AAA", day, 100+float64(day)))
	}

	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 6)
	got := store.LastK("AAA", 3, asOf)
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	if got[0].Close != 104 || got[2].Close != 106 {
		t.Fatalf("window: got [%v..%v], want [104..106]", got[0].Close, got[2].Close)
	}

	all := store.LastK("AAA", 100, asOf)
	if len(all) != 7 {
		t.Fatalf("oversized k should clamp to available history, got %d", len(all))
	}
}

func TestAssetsSorted(t *testing.T) {
	store := NewSeriesStore()
	store.Put(point("ZZZ", 0, 1))
	store.Put(point("AAA", 0, 1))
	store.Put(point("MMM", 0, 1))

	keys := store.Assets()
	if len(keys) != 3 || keys[0] != "AAA" || keys[1] != "MMM" || keys[2] != "ZZZ" {
		t.Fatalf("assets not sorted: %v", keys)
	}
}
