package usecase

import (
	"context"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	"FinSight/pkg/cache"
	"FinSight/pkg/logger"
	"FinSight/pkg/util"
)

// Views serves the read-only result views over the active run, fronted by the
// layered cache. Cache entries are short-lived; a refresh invalidates nothing
// since the run pointer flip changes what the reader returns and entries age
// out on their own.
type Views struct {
	reader domrepo.ResultReader
	cache  cache.Service
	ttl    time.Duration
	log    *logger.Logger
}

func NewViews(reader domrepo.ResultReader, c cache.Service, ttl time.Duration, log *logger.Logger) *Views {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Views{reader: reader, cache: c, ttl: ttl, log: log}
}

func (v *Views) Indicators(ctx context.Context, req *models.IndicatorsRequest) ([]models.IndicatorSnapshot, error) {
	key := cache.GenerateKeyWithParams("views:indicators", req.Asset, req.From, req.To, req.Limit)
	var cached []models.IndicatorSnapshot
	if v.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	from := util.ParseDateDefault(req.From, time.Time{})
	to := util.ParseDateDefault(req.To, time.Time{})
	out, err := v.reader.Indicators(ctx, req.Asset, from, to, req.Limit)
	if err != nil {
		return nil, err
	}
	v.cacheSet(ctx, key, out)
	return out, nil
}

func (v *Views) Anomalies(ctx context.Context, req *models.AnomaliesRequest) ([]models.AnomalyRecord, error) {
	key := cache.GenerateKeyWithParams("views:anomalies", req.Asset, req.Days, req.Severity, req.Limit)
	var cached []models.AnomalyRecord
	if v.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	since := time.Now().UTC().AddDate(0, 0, -req.Days)
	out, err := v.reader.Anomalies(ctx, req.Asset, since, models.Severity(req.Severity), req.Limit)
	if err != nil {
		return nil, err
	}
	v.cacheSet(ctx, key, out)
	return out, nil
}

func (v *Views) Correlations(ctx context.Context, req *models.CorrelationsRequest) ([]models.CorrelationPair, error) {
	key := cache.GenerateKeyWithParams("views:correlations", req.Asset, req.Min, req.Limit)
	var cached []models.CorrelationPair
	if v.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	out, err := v.reader.Correlations(ctx, req.Asset, req.Min, req.Limit)
	if err != nil {
		return nil, err
	}
	v.cacheSet(ctx, key, out)
	return out, nil
}

func (v *Views) Performance(ctx context.Context, req *models.PerformanceRequest) ([]models.PerformanceSummary, error) {
	key := cache.GenerateKeyWithParams("views:performance", req.Class, req.Limit)
	var cached []models.PerformanceSummary
	if v.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	out, err := v.reader.Performance(ctx, models.AssetClass(req.Class), req.Limit)
	if err != nil {
		return nil, err
	}
	v.cacheSet(ctx, key, out)
	return out, nil
}

func (v *Views) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if v.cache == nil {
		return false
	}
	err := v.cache.Get(ctx, key, dest)
	return err == nil
}

func (v *Views) cacheSet(ctx context.Context, key string, value interface{}) {
	if v.cache == nil {
		return
	}
	if err := v.cache.Set(ctx, key, value, v.ttl); err != nil && v.log != nil {
		v.log.Warn("views cache set", logger.String("key", key), logger.Error(err))
	}
}
