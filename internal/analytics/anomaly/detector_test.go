package anomaly

import (
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

// makeSeries builds aligned points and snapshots from daily returns and
// volumes, with opens equal to the previous close so no price gaps appear.
func makeSeries(returns, volumes []float64) ([]models.CanonicalSeriesPoint, []models.IndicatorSnapshot) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.CanonicalSeriesPoint, 0, len(returns))
	snaps := make([]models.IndicatorSnapshot, 0, len(returns))

	price := 100.0
	for i := range returns {
		var ret *float64
		open := price
		if i > 0 {
			r := returns[i]
			ret = &r
			price *= 1 + r
		}
		points = append(points, models.CanonicalSeriesPoint{
			AssetKey: "TEST",
			Class:    models.ClassEquity,
			Date:     base.AddDate(0, 0, i),
			Open:     open,
			Close:    price,
			Volume:   volumes[i],
		})
		snaps = append(snaps, models.IndicatorSnapshot{
			AssetKey:    "TEST",
			Class:       models.ClassEquity,
			Date:        base.AddDate(0, 0, i),
			Close:       price,
			Volume:      volumes[i],
			DailyReturn: ret,
		})
	}
	return points, snaps
}

func TestVolumeSpikeNotReturnTagged(t *testing.T) {
	n := 41
	returns := make([]float64, n)
	volumes := make([]float64, n)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.01
		} else {
			returns[i] = -0.01
		}
		volumes[i] = 1000 + float64(i%2)*10
	}
	// Last day: an ordinary return on five times the usual volume.
	returns[n-1] = 0.01
	volumes[n-1] = 5000

	points, snaps := makeSeries(returns, volumes)
	recs := New(DefaultConfig(models.ClassEquity)).Detect(points, snaps)

	var last *models.AnomalyRecord
	for i := range recs {
		if recs[i].Date.Equal(points[n-1].Date) {
			last = &recs[i]
		}
	}
	if last == nil {
		t.Fatalf("expected an anomaly on the spike day, got %d records", len(recs))
	}
	if last.Mode != models.ModeZScore {
		t.Fatalf("mode: got %q, want %q", last.Mode, models.ModeZScore)
	}
	if !last.HasTag(models.TagVolumeSpike) {
		t.Fatalf("expected %q tag, got %v", models.TagVolumeSpike, last.Tags)
	}
	if last.HasTag(models.TagExtremeReturn) || last.HasTag(models.TagUnusualReturn) {
		t.Fatalf("ordinary return must not be return-tagged, got %v", last.Tags)
	}
}

func TestQuietSeriesProducesNothing(t *testing.T) {
	n := 50
	returns := make([]float64, n)
	volumes := make([]float64, n)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.002
		} else {
			returns[i] = -0.002
		}
		volumes[i] = 1000 + float64(i%3)*5
	}
	points, snaps := makeSeries(returns, volumes)
	recs := New(DefaultConfig(models.ClassEquity)).Detect(points, snaps)
	if len(recs) != 0 {
		t.Fatalf("quiet series should yield no anomalies, got %d: %+v", len(recs), recs)
	}
}

func TestMagnitudeFallbackOnShortHistory(t *testing.T) {
	returns := []float64{0, 0.01, -0.01, 0.01, 0.15}
	volumes := []float64{1000, 1000, 1000, 1000, 1200}
	points, snaps := makeSeries(returns, volumes)

	recs := New(DefaultConfig(models.ClassEquity)).Detect(points, snaps)
	if len(recs) == 0 {
		t.Fatal("expected the 15% day to be flagged despite short history")
	}
	last := recs[len(recs)-1]
	if last.Mode != models.ModeMagnitude {
		t.Fatalf("mode: got %q, want %q", last.Mode, models.ModeMagnitude)
	}
	if !last.HasTag(models.TagExtremeReturn) {
		t.Fatalf("expected %q tag, got %v", models.TagExtremeReturn, last.Tags)
	}
	if last.ReturnZScore != nil || last.VolumeZScore != nil {
		t.Fatal("magnitude mode must not report z-scores")
	}
}

func TestPriceGapTag(t *testing.T) {
	n := 41
	returns := make([]float64, n)
	volumes := make([]float64, n)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.01
		} else {
			returns[i] = -0.01
		}
		volumes[i] = 1000 + float64(i%2)*10
	}
	points, snaps := makeSeries(returns, volumes)
	// Open the last day 8% above the previous close.
	points[n-1].Open = points[n-2].Close * 1.08

	recs := New(DefaultConfig(models.ClassEquity)).Detect(points, snaps)
	var last *models.AnomalyRecord
	for i := range recs {
		if recs[i].Date.Equal(points[n-1].Date) {
			last = &recs[i]
		}
	}
	if last == nil {
		t.Fatal("expected the gap day to be flagged")
	}
	if !last.HasTag(models.TagPriceGap) {
		t.Fatalf("expected %q tag, got %v", models.TagPriceGap, last.Tags)
	}
	if last.PriceGap == nil || *last.PriceGap < 0.05 {
		t.Fatalf("price gap: got %v, want >= 0.05", last.PriceGap)
	}
}

func TestSeverityGate(t *testing.T) {
	cfg := DefaultConfig(models.ClassEquity)
	cfg.MinSeverity = models.SeverityCritical

	returns := []float64{0, 0.01, -0.01, 0.01, 0.06}
	volumes := []float64{1000, 1000, 1000, 1000, 1000}
	points, snaps := makeSeries(returns, volumes)

	recs := New(cfg).Detect(points, snaps)
	for _, r := range recs {
		if r.Severity.Rank() < models.SeverityCritical.Rank() {
			t.Fatalf("severity gate leaked a %q record", r.Severity)
		}
	}
}
