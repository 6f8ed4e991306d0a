package usecase

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"FinSight/internal/domain/models"
	drepo "FinSight/internal/domain/repository"
	"FinSight/pkg/logger"
)

type fakeProvider struct {
	records []models.ObservationRecord
	err     error
}

func (f *fakeProvider) FetchBatch(ctx context.Context, from, to time.Time) ([]models.ObservationRecord, error) {
	return f.records, f.err
}

type fakeResultStore struct {
	written   map[string]*drepo.RunResults
	activated []string
	writeErr  error
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{written: make(map[string]*drepo.RunResults)}
}

func (f *fakeResultStore) WriteRun(ctx context.Context, runID string, res *drepo.RunResults) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[runID] = res
	return nil
}

func (f *fakeResultStore) ActivateRun(ctx context.Context, runID string) error {
	if _, ok := f.written[runID]; !ok {
		return errors.New("activating a run that was never written")
	}
	f.activated = append(f.activated, runID)
	return nil
}

func (f *fakeResultStore) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordObservation(source, assetKey string) {}
func (nopMetrics) RecordDropped(reason string)               {}
func (nopMetrics) RecordError(kind string)                   {}
func (nopMetrics) RecordLatency(op string, seconds float64)  {}
func (nopMetrics) RecordRun(report *models.BatchReport)      {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func batchRecords(n int) []models.ObservationRecord {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ingested := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var records []models.ObservationRecord
	id := int64(1)
	for day := 0; day < n; day++ {
		for _, asset := range []string{"AAA", "BBB"} {
			price := 100 + float64(day)
			if asset == "BBB" {
				price = 200 - float64(day)/2
			}
			records = append(records, models.ObservationRecord{
				ID:         id,
				AssetKey:   asset,
				Class:      models.ClassEquity,
				Date:       base.AddDate(0, 0, day),
				Open:       price,
				High:       price + 1,
				Low:        price - 1,
				Close:      price,
				Volume:     1000,
				IngestedAt: ingested,
				Source:     "test",
			})
			id++
		}
	}
	return records
}

func newTestPipeline(t *testing.T, provider drepo.ObservationProvider, store drepo.ResultStore) *Pipeline {
	t.Helper()
	return NewPipeline(provider, store, nil, nopMetrics{}, testLogger(t), PipelineConfig{Workers: 2})
}

func TestRunWritesThenActivates(t *testing.T) {
	store := newFakeResultStore()
	p := newTestPipeline(t, &fakeProvider{records: batchRecords(35)}, store)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.activated) != 1 {
		t.Fatalf("expected exactly one activated run, got %v", store.activated)
	}
	res := store.written[store.activated[0]]
	if res == nil {
		t.Fatal("activated run has no written results")
	}
	if report.Assets != 2 || report.Snapshots != 70 {
		t.Fatalf("report: assets=%d snapshots=%d, want 2/70", report.Assets, report.Snapshots)
	}
	if len(res.Summaries) != 2 {
		t.Fatalf("summaries: got %d, want 2", len(res.Summaries))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	records := batchRecords(40)

	run := func() *drepo.RunResults {
		store := newFakeResultStore()
		p := newTestPipeline(t, &fakeProvider{records: records}, store)
		if _, err := p.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		return store.written[store.activated[0]]
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first.Snapshots, second.Snapshots) {
		t.Fatal("snapshots differ between identical runs")
	}
	if !reflect.DeepEqual(first.Anomalies, second.Anomalies) {
		t.Fatal("anomalies differ between identical runs")
	}
	if !reflect.DeepEqual(first.Correlations, second.Correlations) {
		t.Fatal("correlations differ between identical runs")
	}
	if !reflect.DeepEqual(first.Summaries, second.Summaries) {
		t.Fatal("summaries differ between identical runs")
	}
}

func TestFailedWriteNeverActivates(t *testing.T) {
	store := newFakeResultStore()
	store.writeErr = errors.New("disk full")
	p := newTestPipeline(t, &fakeProvider{records: batchRecords(35)}, store)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected write failure to surface")
	}
	if len(store.activated) != 0 {
		t.Fatalf("failed run must not activate, got %v", store.activated)
	}
}

func TestFetchFailureProducesNoOutput(t *testing.T) {
	store := newFakeResultStore()
	p := newTestPipeline(t, &fakeProvider{err: errors.New("upstream down")}, store)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected fetch failure to surface")
	}
	if len(store.written) != 0 || len(store.activated) != 0 {
		t.Fatal("failed fetch must leave no partial output")
	}
}

func TestDuplicateObservationsCollapse(t *testing.T) {
	records := batchRecords(35)
	// Re-deliver the whole batch with later ingestion timestamps.
	dup := make([]models.ObservationRecord, len(records))
	copy(dup, records)
	for i := range dup {
		dup[i].ID += int64(len(records))
		dup[i].IngestedAt = dup[i].IngestedAt.Add(time.Hour)
	}

	store := newFakeResultStore()
	p := newTestPipeline(t, &fakeProvider{records: append(records, dup...)}, store)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Duplicates != len(records) {
		t.Fatalf("duplicates: got %d, want %d", report.Duplicates, len(records))
	}
	if report.Snapshots != 70 {
		t.Fatalf("snapshots after collapse: got %d, want 70", report.Snapshots)
	}
}

// boundedProvider honors the fetch range the way the ClickHouse store does,
// so tests can tell a clipped fetch apart from a clipped emission.
type boundedProvider struct {
	records []models.ObservationRecord
}

func (f *boundedProvider) FetchBatch(ctx context.Context, from, to time.Time) ([]models.ObservationRecord, error) {
	var out []models.ObservationRecord
	for _, rec := range f.records {
		if !from.IsZero() && rec.Date.Before(from) {
			continue
		}
		if !to.IsZero() && rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func TestStartDateBoundsEmissionNotHistory(t *testing.T) {
	records := batchRecords(60)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 30)

	store := newFakeResultStore()
	p := NewPipeline(&boundedProvider{records: records}, store, nil, nopMetrics{}, testLogger(t), PipelineConfig{
		Start:   start,
		Workers: 2,
	})

	_, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := store.written[store.activated[0]]

	var onStart *models.IndicatorSnapshot
	for i := range res.Snapshots {
		s := &res.Snapshots[i]
		if s.Date.Before(start) {
			t.Fatalf("snapshot for %s emitted before start date", s.Date.Format("2006-01-02"))
		}
		if s.AssetKey == "AAA" && s.Date.Equal(start) {
			onStart = s
		}
	}
	if onStart == nil {
		t.Fatal("no snapshot emitted on the start date")
	}

	// Thirty days of history precede the start date, so the snapshot on it
	// must already carry warm windows.
	if onStart.DailyReturn == nil {
		t.Fatal("daily return nil on start date despite prior history")
	}
	if onStart.RSI == nil {
		t.Fatal("RSI nil on start date despite prior history")
	}
	// AAA closes at 100+day, so MA(20) on day 30 spans days 11..30.
	ma := onStart.MA(20)
	if ma == nil {
		t.Fatal("MA(20) nil on start date")
	}
	if want := 120.5; math.Abs(*ma-want) > 1e-9 {
		t.Fatalf("MA(20) on start date: got %v, want %v", *ma, want)
	}
}

func TestClassTuningOverridesDefaults(t *testing.T) {
	store := newFakeResultStore()
	p := NewPipeline(&fakeProvider{records: batchRecords(10)}, store, nil, nopMetrics{}, testLogger(t), PipelineConfig{
		Workers: 2,
		Tuning: map[models.AssetClass]ClassTuning{
			models.ClassEquity: {MAWindows: []int{2, 3}, ShortMAWindow: 2, LongMAWindow: 3},
		},
	})

	_, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := store.written[store.activated[0]]
	if len(res.Snapshots) == 0 {
		t.Fatal("no snapshots written")
	}
	for i := range res.Snapshots {
		s := &res.Snapshots[i]
		if s.MA(2) == nil || s.MA(3) == nil {
			t.Fatalf("tuned MA windows missing on %s %s", s.AssetKey, s.Date.Format("2006-01-02"))
		}
		if s.MA(20) != nil {
			t.Fatalf("default MA window still computed on %s despite override", s.AssetKey)
		}
	}
}
