package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	"FinSight/internal/handler/api"
	mid "FinSight/internal/middleware"
	internalrepo "FinSight/internal/repository"
	"FinSight/internal/usecase"
	"FinSight/pkg/cache"
	pkgch "FinSight/pkg/clickhouse"
	"FinSight/pkg/config"
	pkgkafka "FinSight/pkg/kafka"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/metrics"
	"FinSight/pkg/queue"
	"FinSight/pkg/server"
	"FinSight/pkg/util"
)

// schema statements are idempotent and applied at startup. Result tables keep
// superseded runs for a day; the active run pointer never expires.
var schemaStatements = []string{
	"CREATE DATABASE IF NOT EXISTS finsight",
	`CREATE TABLE IF NOT EXISTS finsight.raw_observations (
        id String, asset_key String, asset_name String, class String, date DateTime,
        open Nullable(Float64), high Nullable(Float64), low Nullable(Float64), close Float64,
        volume Nullable(Float64), market_cap Nullable(Float64),
        ingested_at DateTime64(3), source String
    ) ENGINE=MergeTree ORDER BY (asset_key, date, ingested_at, id)`,
	`CREATE TABLE IF NOT EXISTS finsight.indicator_snapshots (
        run_id String, asset_key String, class String, date DateTime,
        close Float64, volume Nullable(Float64), daily_return Nullable(Float64),
        moving_avg String, volume_ma Nullable(Float64), volatility Nullable(Float64),
        rsi Nullable(Float64), bollinger_mid Nullable(Float64), bollinger_up Nullable(Float64),
        bollinger_low Nullable(Float64), sharpe_ratio Nullable(Float64), max_drawdown Nullable(Float64),
        ma_signal String, rsi_signal String, written_at DateTime DEFAULT now()
    ) ENGINE=MergeTree ORDER BY (run_id, asset_key, date) TTL written_at + INTERVAL 1 DAY`,
	`CREATE TABLE IF NOT EXISTS finsight.anomalies (
        run_id String, asset_key String, asset_name String, class String, date DateTime,
        mode String, daily_return Nullable(Float64), return_z Nullable(Float64),
        volume_z Nullable(Float64), price_gap Nullable(Float64),
        tags String, score Float64, severity String, written_at DateTime DEFAULT now()
    ) ENGINE=MergeTree ORDER BY (run_id, asset_key, date) TTL written_at + INTERVAL 1 DAY`,
	`CREATE TABLE IF NOT EXISTS finsight.correlations (
        run_id String, asset1 String, asset2 String, as_of DateTime, method String,
        correlation Float64, observations Int32, strength String, relationship String,
        written_at DateTime DEFAULT now()
    ) ENGINE=MergeTree ORDER BY (run_id, asset1, asset2) TTL written_at + INTERVAL 1 DAY`,
	`CREATE TABLE IF NOT EXISTS finsight.performance_summaries (
        run_id String, asset_key String, asset_name String, class String, as_of DateTime,
        current_price Float64, current_return Nullable(Float64), current_vol Nullable(Float64),
        current_rsi Nullable(Float64), total_return Nullable(Float64), annualized_return Nullable(Float64),
        annualized_volatility Nullable(Float64), sharpe_ratio Nullable(Float64), max_drawdown Nullable(Float64),
        beta_proxy Nullable(Float64), dominant_ma_signal String, dominant_rsi_signal String,
        days_of_history Int32, rank_total_return Int32, rank_annualized_return Int32,
        rank_low_volatility Int32, rank_sharpe Int32, risk_level String, risk_return_profile String,
        written_at DateTime DEFAULT now()
    ) ENGINE=MergeTree ORDER BY (run_id, class, asset_key) TTL written_at + INTERVAL 1 DAY`,
	`CREATE TABLE IF NOT EXISTS finsight.active_run (
        run_id String, activated_at DateTime64(3)
    ) ENGINE=MergeTree ORDER BY activated_at`,
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, schemaStatements); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for the alerts topic.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache service. With Redis enabled the memory layer
// fronts it; otherwise a process-local cache serves locks and view caching.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideObservationStore creates the ClickHouse raw observation store.
func ProvideObservationStore(chClient *pkgch.Client) *internalrepo.ClickHouseObservationStore {
	return internalrepo.NewClickHouseObservationStore(chClient)
}

// ProvideObservationSink exposes the store's write side.
func ProvideObservationSink(store *internalrepo.ClickHouseObservationStore) repository.RawObservationSink {
	return store
}

// ProvideObservationProvider exposes the store's read side.
func ProvideObservationProvider(store *internalrepo.ClickHouseObservationStore) repository.ObservationProvider {
	return store
}

// ProvideResultStore creates the ClickHouse run result store.
func ProvideResultStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.CHResultStore {
	store := internalrepo.NewCHResultStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideRunWriter exposes the result store's write side.
func ProvideRunWriter(store *internalrepo.CHResultStore) repository.ResultStore {
	return store
}

// ProvideResultReader exposes the result store's read side.
func ProvideResultReader(store *internalrepo.CHResultStore) repository.ResultReader {
	return store
}

// ProvideAlertPublisher selects the alert sink from config. A nil publisher
// disables alerting.
func ProvideAlertPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.AlertPublisher {
	switch cfg.Alerts.Sink {
	case "kafka":
		return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
	case "webhook":
		timeout := cfg.Alerts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return internalrepo.NewWebhookAlertPublisher(cfg.Alerts.WebhookURL, timeout)
	default:
		return nil
	}
}

// ProvideIngestBuffer creates the batching buffer in front of the raw store.
func ProvideIngestBuffer(sink repository.RawObservationSink, m repository.Metrics, cfg *config.Config) *mid.IngestBuffer {
	var opts []mid.BufferOption
	if cfg.Ingest.BatchSize > 0 {
		opts = append(opts, mid.WithBatchSize(cfg.Ingest.BatchSize))
	}
	if cfg.Ingest.FlushTimeout > 0 {
		opts = append(opts, mid.WithFlushTimeout(cfg.Ingest.FlushTimeout))
	}
	if cfg.Ingest.BufferLimit > 0 {
		opts = append(opts, mid.WithBufferLimit(cfg.Ingest.BufferLimit))
	}
	return mid.NewIngestBuffer(sink, m, opts...)
}

// ProvideObservationsHandler registers the handler for the observations topic.
func ProvideObservationsHandler(buffer *mid.IngestBuffer, m repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, buffer, m)
}

// ProvidePipeline creates the batch analytics pipeline.
func ProvidePipeline(
	provider repository.ObservationProvider,
	results repository.ResultStore,
	alerts repository.AlertPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Pipeline {
	refs := make(map[models.AssetClass]string, len(cfg.Analytics.ReferenceAssets))
	for class, key := range cfg.Analytics.ReferenceAssets {
		refs[models.AssetClass(class)] = key
	}
	method := models.MethodPearson
	if cfg.Analytics.CorrelationMethod == "signproxy" {
		method = models.MethodSignProxy
	}
	tuning := make(map[models.AssetClass]usecase.ClassTuning, len(cfg.Analytics.Classes))
	for class, cc := range cfg.Analytics.Classes {
		tuning[models.AssetClass(class)] = usecase.ClassTuning{
			MAWindows:           cc.MAWindows,
			ShortMAWindow:       cc.ShortMAWindow,
			LongMAWindow:        cc.LongMAWindow,
			VolumeWindow:        cc.VolumeWindow,
			VolatilityWindow:    cc.VolatilityWindow,
			RSIPeriod:           cc.RSIPeriod,
			BollingerWindow:     cc.BollingerWindow,
			ReturnZWindow:       cc.ReturnZWindow,
			VolumeZWindow:       cc.VolumeZWindow,
			MinZObservations:    cc.MinZObservations,
			VolatilityThreshold: cc.VolatilityThreshold,
			GapThreshold:        cc.GapThreshold,
		}
	}
	return usecase.NewPipeline(provider, results, alerts, m, l, usecase.PipelineConfig{
		Start:             util.ParseDateDefault(cfg.Analytics.StartDate, time.Time{}),
		End:               util.ParseDateDefault(cfg.Analytics.EndDate, time.Time{}),
		CorrelationMethod: method,
		RiskFreeRate:      cfg.Analytics.RiskFreeRate,
		ReferenceAssets:   refs,
		Tuning:            tuning,
		Workers:           cfg.Analytics.Workers,
	})
}

// ProvideRefreshCoordinator creates the run coordinator.
func ProvideRefreshCoordinator(pipeline *usecase.Pipeline, c cache.Service, l *applogger.Logger, cfg *config.Config) *usecase.RefreshCoordinator {
	return usecase.NewRefreshCoordinator(pipeline, c, l, cfg.Analytics.LockTTL)
}

// ProvideQueue creates the Redis-backed job queue with the refresh job
// registered. Without Redis the queue is disabled and refreshes run inline.
func ProvideQueue(cfg *config.Config, l *applogger.Logger, c cache.Service, coord *usecase.RefreshCoordinator) *queue.RedisQueue {
	lc, ok := c.(*cache.LayeredCache)
	if !ok {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, lc.Redis().Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewRefreshJob(coord, l))
	return q
}

// ProvideViews creates the cached read views.
func ProvideViews(reader repository.ResultReader, c cache.Service, l *applogger.Logger, cfg *config.Config) *usecase.Views {
	return usecase.NewViews(reader, c, cfg.Analytics.ViewCacheTTL, l)
}

// ProvideViewsHandler creates the Echo HTTP handler.
func ProvideViewsHandler(l *applogger.Logger, views *usecase.Views, coord *usecase.RefreshCoordinator, q *queue.RedisQueue) *api.ViewsEchoHandler {
	var qsvc queue.QueueService
	if q != nil {
		qsvc = q
	}
	return api.NewViewsEchoHandler(l, views, coord, qsvc)
}

// kafkaLogPublisher adapts the producer to the log collector's publisher.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	buffer *mid.IngestBuffer,
	q *queue.RedisQueue,
	handler *api.ViewsEchoHandler,
	coord *usecase.RefreshCoordinator,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if cfg.Kafka.OpsLogTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.OpsLogTopic,
			Publisher:      kafkaLogPublisher{p: producer},
		})
	}
	return server.New(cfg, l, consumer, kh, buffer, q, handler, coord, chClient)
}
