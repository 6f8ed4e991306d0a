package usecase

import (
	"context"
	"testing"
	"time"

	"FinSight/pkg/cache"
)

func TestRefreshStoresLastReport(t *testing.T) {
	provider := &fakeProvider{records: batchRecords(40)}
	store := newFakeResultStore()
	coord := NewRefreshCoordinator(newTestPipeline(t, provider, store), cache.NewMemoryCache(), testLogger(t), time.Minute)

	if coord.LastReport() != nil {
		t.Fatal("report before first run should be nil")
	}
	report, err := coord.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := coord.LastReport(); got != report {
		t.Fatalf("LastReport = %p, want %p", got, report)
	}
	if report.RunID == "" {
		t.Fatal("report missing run id")
	}
}

func TestRefreshRejectedWhileLockHeld(t *testing.T) {
	provider := &fakeProvider{records: batchRecords(40)}
	store := newFakeResultStore()
	locks := cache.NewMemoryCache()
	coord := NewRefreshCoordinator(newTestPipeline(t, provider, store), locks, testLogger(t), time.Minute)

	// Hold the lock as if another instance were mid-run.
	ok, err := locks.TryLock(context.Background(), "pipeline:refresh", time.Minute)
	if err != nil || !ok {
		t.Fatalf("setup lock: ok=%v err=%v", ok, err)
	}

	if _, err := coord.Refresh(context.Background()); err != ErrRefreshInProgress {
		t.Fatalf("err = %v, want ErrRefreshInProgress", err)
	}

	if err := locks.Unlock(context.Background(), "pipeline:refresh"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh after unlock: %v", err)
	}
}

func TestRefreshJobDropsWhenBusy(t *testing.T) {
	provider := &fakeProvider{records: batchRecords(40)}
	store := newFakeResultStore()
	locks := cache.NewMemoryCache()
	coord := NewRefreshCoordinator(newTestPipeline(t, provider, store), locks, testLogger(t), time.Minute)
	job := NewRefreshJob(coord, testLogger(t))

	ok, err := locks.TryLock(context.Background(), "pipeline:refresh", time.Minute)
	if err != nil || !ok {
		t.Fatalf("setup lock: ok=%v err=%v", ok, err)
	}

	// Busy refreshes must not error, or the queue would retry them.
	if err := job.Handle(context.Background(), map[string]interface{}{"trigger": "test"}); err != nil {
		t.Fatalf("busy job errored: %v", err)
	}
}
