package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgch "FinSight/pkg/clickhouse"
	pkgkafka "FinSight/pkg/kafka"
)

const observationsTable = "finsight.raw_observations"

// ClickHouseObservationStore lands raw observations and serves them back to
// the pipeline as batches. It deliberately returns every stored row for a
// date range, duplicates included; deduplication is the pipeline's job.
type ClickHouseObservationStore struct {
	db *sql.DB
}

func NewClickHouseObservationStore(ch *pkgch.Client) *ClickHouseObservationStore {
	return &ClickHouseObservationStore{db: ch.DB()}
}

func (s *ClickHouseObservationStore) Store(ctx context.Context, rec *models.ObservationRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (id, asset_key, asset_name, class, date, open, high, low, close, volume, market_cap, ingested_at, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", observationsTable)
	_, err := s.db.ExecContext(ctx, q, recordArgs(rec)...)
	return err
}

func (s *ClickHouseObservationStore) StoreBatch(ctx context.Context, recs []*models.ObservationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to keep statements bounded.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, rec := range recs[start:end] {
			if rec == nil || rec.AssetKey == "" || rec.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, recordArgs(rec)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, asset_key, asset_name, class, date, open, high, low, close, volume, market_cap, ingested_at, source) VALUES %s", observationsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// FetchBatch returns all raw records in the range. A zero bound leaves that
// side open.
func (s *ClickHouseObservationStore) FetchBatch(ctx context.Context, from, to time.Time) ([]models.ObservationRecord, error) {
	q := fmt.Sprintf("SELECT id, asset_key, asset_name, class, date, open, high, low, close, volume, market_cap, ingested_at, source FROM %s", observationsTable)
	var conds []string
	var args []interface{}
	if !from.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, to)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY asset_key, date, ingested_at, id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.ObservationRecord, 0, 4096)
	for rows.Next() {
		var rec models.ObservationRecord
		var class string
		if err := rows.Scan(&rec.ID, &rec.AssetKey, &rec.AssetName, &class, &rec.Date,
			&rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume, &rec.MarketCap,
			&rec.IngestedAt, &rec.Source); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		rec.Class = models.AssetClass(class)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *ClickHouseObservationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseObservationStore) Close() error {
	return nil // Managed by pkg
}

func recordArgs(rec *models.ObservationRecord) []interface{} {
	return []interface{}{
		rec.ID,
		rec.AssetKey,
		rec.AssetName,
		string(rec.Class),
		rec.Date,
		rec.Open,
		rec.High,
		rec.Low,
		rec.Close,
		rec.Volume,
		rec.MarketCap,
		rec.IngestedAt,
		rec.Source,
	}
}

var (
	_ domrepo.RawObservationSink  = (*ClickHouseObservationStore)(nil)
	_ domrepo.ObservationProvider = (*ClickHouseObservationStore)(nil)
)

// KafkaAlertPublisher pushes retained anomalies to the alerts topic, keyed by
// asset so per-asset ordering is preserved.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) domrepo.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) PublishAnomalies(ctx context.Context, anomalies []models.AnomalyRecord) error {
	if len(anomalies) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(anomalies))
	for i := range anomalies {
		a := &anomalies[i]
		msgs[i] = pkgkafka.Message{
			Key: []byte(a.AssetKey),
			Value: map[string]interface{}{
				"asset_key": a.AssetKey,
				"class":     a.Class,
				"date":      a.Date.Format("2006-01-02"),
				"mode":      a.Mode,
				"tags":      a.Tags,
				"score":     a.Score,
				"severity":  a.Severity,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op. The producer is shared with the log collector's
// publisher; its lifecycle belongs to the application, not this sink.
func (p *KafkaAlertPublisher) Close() error {
	return nil
}
