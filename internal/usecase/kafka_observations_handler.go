package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgkafka "FinSight/pkg/kafka"
)

// Ingestor is the minimal downstream the handler forwards observations to.
type Ingestor interface {
	Ingest(ctx context.Context, rec *models.ObservationRecord) error
}

// KafkaObservationsHandler consumes observation messages from the ingestion
// topic and forwards them to the ingest buffer. Validation beyond basic shape
// happens later at the deduplicator, so a malformed-but-parseable record still
// lands and gets counted there.
type KafkaObservationsHandler struct {
	topic    string
	ingestor Ingestor
	metrics  domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, ingestor Ingestor, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// Handle parses one observation message. Schema matches the JSON tags on
// models.ObservationRecord.
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.ObservationRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if rec.AssetKey == "" {
		h.metrics.RecordError("consumer_missing_asset_key")
		return fmt.Errorf("observation missing asset_key")
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}
	// E2E latency from ingestion stamp to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(rec.IngestedAt).Seconds())

	start := time.Now()
	if err := h.ingestor.Ingest(ctx, &rec); err != nil {
		h.metrics.RecordError("consumer_ingest")
		return err
	}
	h.metrics.RecordLatency("ingest_forward_seconds", time.Since(start).Seconds())
	h.metrics.RecordObservation(rec.Source, rec.AssetKey)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
