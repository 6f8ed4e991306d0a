package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
)

// IngestBuffer sits between the ingestion topic and the raw observation sink.
// It validates incoming records, coalesces them into batches, and retries the
// flush with backoff when the sink is unavailable.
type IngestBuffer struct {
	sink    domrepo.RawObservationSink
	metrics domrepo.Metrics

	batchSize    int
	flushTimeout time.Duration
	bufSize      int

	mu      sync.Mutex
	pending []*models.ObservationRecord
	started bool
	stopCh  chan struct{}
	flushCh chan struct{}
	wg      sync.WaitGroup
}

type BufferOption func(*IngestBuffer)

// WithBatchSize sets how many records are coalesced per sink write.
func WithBatchSize(n int) BufferOption {
	return func(b *IngestBuffer) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithFlushTimeout sets the max age of a partial batch before it is flushed.
func WithFlushTimeout(d time.Duration) BufferOption {
	return func(b *IngestBuffer) {
		if d > 0 {
			b.flushTimeout = d
		}
	}
}

// WithBufferLimit caps the pending records held while the sink is down.
func WithBufferLimit(n int) BufferOption {
	return func(b *IngestBuffer) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

func NewIngestBuffer(sink domrepo.RawObservationSink, metrics domrepo.Metrics, opts ...BufferOption) *IngestBuffer {
	b := &IngestBuffer{
		sink:         sink,
		metrics:      metrics,
		batchSize:    500,
		flushTimeout: 2 * time.Second,
		bufSize:      10000,
		stopCh:       make(chan struct{}),
		flushCh:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the background flusher.
func (b *IngestBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.flushTimeout)
		defer ticker.Stop()
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-b.stopCh:
				b.flush(ctx)
				return
			case <-b.flushCh:
			case <-ticker.C:
			}
			if err := b.flush(ctx); err != nil {
				if backoff < 2*time.Second {
					backoff *= 2
				}
				b.metrics.RecordError("ingest_flush")
				time.Sleep(backoff)
			} else {
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop drains the buffer and stops the flusher.
func (b *IngestBuffer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()
	close(b.stopCh)
	b.wg.Wait()
}

// Ingest validates and enqueues one observation. When the buffer is at its
// limit the oldest pending record is dropped and counted, so a dead sink
// cannot grow memory without bound.
func (b *IngestBuffer) Ingest(ctx context.Context, rec *models.ObservationRecord) error {
	if err := validateShape(rec); err != nil {
		b.metrics.RecordError("ingest_validate")
		return err
	}

	b.mu.Lock()
	if len(b.pending) >= b.bufSize {
		b.pending = b.pending[1:]
		b.metrics.RecordError("ingest_buffer_drop")
	}
	b.pending = append(b.pending, rec)
	full := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if full {
		select {
		case b.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *IngestBuffer) flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if err := b.sink.StoreBatch(ctx, batch); err != nil {
		// put the batch back in front of anything that arrived meanwhile
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		if len(b.pending) > b.bufSize {
			dropped := len(b.pending) - b.bufSize
			b.pending = b.pending[dropped:]
			for i := 0; i < dropped; i++ {
				b.metrics.RecordError("ingest_buffer_drop")
			}
		}
		b.mu.Unlock()
		return fmt.Errorf("ingest flush: %w", err)
	}
	b.metrics.RecordLatency("ingest_batch_size", float64(len(batch)))
	return nil
}

// validateShape rejects records the deduplicator could not even key on.
// Full per-class validation happens there, where drops are counted.
func validateShape(rec *models.ObservationRecord) error {
	if rec == nil {
		return fmt.Errorf("observation nil")
	}
	if rec.AssetKey == "" {
		return fmt.Errorf("asset_key empty")
	}
	if rec.Date.IsZero() {
		return fmt.Errorf("date missing")
	}
	return nil
}
