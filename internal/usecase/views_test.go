package usecase

import (
	"context"
	"testing"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/pkg/cache"
)

type fakeReader struct {
	anomalyCalls int
	since        time.Time
	from, to     time.Time
}

func (f *fakeReader) Indicators(ctx context.Context, assetKey string, from, to time.Time, limit int) ([]models.IndicatorSnapshot, error) {
	f.from, f.to = from, to
	return []models.IndicatorSnapshot{{AssetKey: assetKey}}, nil
}

func (f *fakeReader) Anomalies(ctx context.Context, assetKey string, since time.Time, minSeverity models.Severity, limit int) ([]models.AnomalyRecord, error) {
	f.anomalyCalls++
	f.since = since
	return []models.AnomalyRecord{{AssetKey: "aapl_equity", Severity: minSeverity}}, nil
}

func (f *fakeReader) Correlations(ctx context.Context, assetKey string, minAbs float64, limit int) ([]models.CorrelationPair, error) {
	return nil, nil
}

func (f *fakeReader) Performance(ctx context.Context, class models.AssetClass, limit int) ([]models.PerformanceSummary, error) {
	return nil, nil
}

func TestAnomaliesServedFromCacheOnSecondCall(t *testing.T) {
	reader := &fakeReader{}
	v := NewViews(reader, cache.NewMemoryCache(), time.Minute, testLogger(t))

	req := &models.AnomaliesRequest{Days: 7, Severity: "Moderate", Limit: 10}
	first, err := v.Anomalies(context.Background(), req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := v.Anomalies(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if reader.anomalyCalls != 1 {
		t.Fatalf("reader called %d times, want 1", reader.anomalyCalls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].AssetKey != first[0].AssetKey {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestAnomaliesWindowFromDays(t *testing.T) {
	reader := &fakeReader{}
	v := NewViews(reader, nil, time.Minute, testLogger(t))

	if _, err := v.Anomalies(context.Background(), &models.AnomaliesRequest{Days: 30, Severity: "High", Limit: 5}); err != nil {
		t.Fatalf("anomalies: %v", err)
	}
	want := time.Now().UTC().AddDate(0, 0, -30)
	if diff := want.Sub(reader.since); diff > time.Minute || diff < -time.Minute {
		t.Fatalf("since = %v, want about %v", reader.since, want)
	}
}

func TestIndicatorsParsesDateBounds(t *testing.T) {
	reader := &fakeReader{}
	v := NewViews(reader, nil, time.Minute, testLogger(t))

	req := &models.IndicatorsRequest{Asset: "btc_crypto", From: "2024-01-02", To: "2024-06-30", Limit: 100}
	if _, err := v.Indicators(context.Background(), req); err != nil {
		t.Fatalf("indicators: %v", err)
	}
	if reader.from.Format("2006-01-02") != "2024-01-02" {
		t.Fatalf("from = %v", reader.from)
	}
	if reader.to.Format("2006-01-02") != "2024-06-30" {
		t.Fatalf("to = %v", reader.to)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	v := NewViews(&fakeReader{}, nil, 0, testLogger(t))
	if _, err := v.Performance(context.Background(), &models.PerformanceRequest{Limit: 10}); err != nil {
		t.Fatalf("performance: %v", err)
	}
}
