package usecase

import (
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

func obs(id int64, asset string, day int, close float64, ingestedOffset int) models.ObservationRecord {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return models.ObservationRecord{
		ID:         id,
		AssetKey:   asset,
		Class:      models.ClassEquity,
		Date:       date,
		Close:      close,
		Volume:     100,
		IngestedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC).Add(time.Duration(ingestedOffset) * time.Minute),
		Source:     "test",
	}
}

func TestLatestIngestionWins(t *testing.T) {
	records := []models.ObservationRecord{
		obs(1, "AAA", 0, 100, 0),
		obs(2, "AAA", 0, 101, 5),
		obs(3, "AAA", 0, 99, 2),
	}
	series, stats := NewDeduplicator(nil).Dedup(records)

	if stats.Duplicates != 2 {
		t.Fatalf("duplicates: got %d, want 2", stats.Duplicates)
	}
	seq := series["AAA"]
	if len(seq) != 1 {
		t.Fatalf("expected 1 canonical point, got %d", len(seq))
	}
	if seq[0].Close != 101 {
		t.Fatalf("latest ingested_at should win: got close %v, want 101", seq[0].Close)
	}
}

func TestEqualTimestampsBreakTiesByID(t *testing.T) {
	records := []models.ObservationRecord{
		obs(7, "AAA", 0, 100, 0),
		obs(9, "AAA", 0, 102, 0),
		obs(8, "AAA", 0, 101, 0),
	}
	series, _ := NewDeduplicator(nil).Dedup(records)
	if got := series["AAA"][0].Close; got != 102 {
		t.Fatalf("largest ID should win the tie: got close %v, want 102", got)
	}
}

func TestInvalidObservationsDroppedAndCounted(t *testing.T) {
	bad := obs(1, "AAA", 0, -5, 0)
	inverted := obs(2, "AAA", 1, 100, 0)
	inverted.High, inverted.Low = 90, 110
	noKey := obs(3, "", 2, 100, 0)
	good := obs(4, "AAA", 3, 100, 0)

	series, stats := NewDeduplicator(nil).Dedup([]models.ObservationRecord{bad, inverted, noKey, good})

	if stats.Dropped != 3 {
		t.Fatalf("dropped: got %d, want 3", stats.Dropped)
	}
	if stats.DropReasons[DropNonPositivePrice] != 1 ||
		stats.DropReasons[DropInvertedHighLow] != 1 ||
		stats.DropReasons[DropMissingAssetKey] != 1 {
		t.Fatalf("unexpected drop reasons: %v", stats.DropReasons)
	}
	if len(series["AAA"]) != 1 {
		t.Fatalf("expected only the valid point, got %d", len(series["AAA"]))
	}
}

func TestOutputSortedStrictlyIncreasing(t *testing.T) {
	records := []models.ObservationRecord{
		obs(1, "AAA", 2, 102, 0),
		obs(2, "AAA", 0, 100, 0),
		obs(3, "AAA", 1, 101, 0),
		obs(4, "BBB", 1, 50, 0),
		obs(5, "BBB", 0, 49, 0),
	}
	series, _ := NewDeduplicator(nil).Dedup(records)

	for asset, seq := range series {
		for i := 1; i < len(seq); i++ {
			if !seq[i-1].Date.Before(seq[i].Date) {
				t.Fatalf("%s: dates not strictly increasing at index %d", asset, i)
			}
		}
	}
}

func TestQualityFlags(t *testing.T) {
	flat := obs(1, "AAA", 0, 100, 0)
	flat.Open, flat.High, flat.Low = 100, 100, 100

	odd := obs(2, "AAA", 1, 110, 0)
	odd.Open, odd.High, odd.Low = 105, 108, 100 // close above high

	series, stats := NewDeduplicator(nil).Dedup([]models.ObservationRecord{flat, odd})
	if stats.Flagged != 2 {
		t.Fatalf("flagged: got %d, want 2", stats.Flagged)
	}
	seq := series["AAA"]
	if !seq[0].HasFlag(models.FlagFlatPrice) {
		t.Fatalf("expected flat_price flag, got %v", seq[0].Flags)
	}
	if !seq[1].HasFlag(models.FlagInvertedHighLow) {
		t.Fatalf("expected inverted_high_low flag, got %v", seq[1].Flags)
	}
}
