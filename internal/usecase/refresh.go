package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/pkg/cache"
	"FinSight/pkg/logger"
	"FinSight/pkg/queue"
)

// ErrRefreshInProgress is returned when another refresh already holds the lock.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// RefreshPayload is the queue message that triggers a pipeline run.
type RefreshPayload struct {
	Trigger string `json:"trigger"`
}

// RefreshCoordinator serializes pipeline runs. The distributed lock keeps one
// run at a time across instances; a rejected caller gets the in-progress
// error instead of a second concurrent rebuild.
type RefreshCoordinator struct {
	pipeline *Pipeline
	locks    cache.Service
	log      *logger.Logger
	lockTTL  time.Duration

	mu         sync.RWMutex
	lastReport *models.BatchReport
}

func NewRefreshCoordinator(pipeline *Pipeline, locks cache.Service, log *logger.Logger, lockTTL time.Duration) *RefreshCoordinator {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Minute
	}
	return &RefreshCoordinator{pipeline: pipeline, locks: locks, log: log, lockTTL: lockTTL}
}

const refreshLockKey = "pipeline:refresh"

// Refresh runs one full pipeline batch under the lock.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (*models.BatchReport, error) {
	if c.locks != nil {
		ok, err := c.locks.TryLock(ctx, refreshLockKey, c.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRefreshInProgress
		}
		defer func() {
			if err := c.locks.Unlock(context.Background(), refreshLockKey); err != nil {
				c.log.Warn("release refresh lock", logger.Error(err))
			}
		}()
	}

	report, err := c.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastReport = report
	c.mu.Unlock()
	return report, nil
}

// LastReport returns the most recent run's report, or nil before the first
// completed run of this process.
func (c *RefreshCoordinator) LastReport() *models.BatchReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReport
}

// RefreshJob adapts the coordinator to the queue worker. A refresh rejected
// by the lock is dropped, not retried; the running refresh covers it.
type RefreshJob struct {
	coord *RefreshCoordinator
	log   *logger.Logger
}

func NewRefreshJob(coord *RefreshCoordinator, log *logger.Logger) *RefreshJob {
	return &RefreshJob{coord: coord, log: log}
}

func (j *RefreshJob) Name() string { return "analytics_refresh" }
func (j *RefreshJob) Type() string { return "refresh" }

func (j *RefreshJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return err
	}
	report, err := j.coord.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		j.log.Info("refresh skipped, already running", logger.String("trigger", p.Trigger))
		return nil
	}
	if err != nil {
		return err
	}
	j.log.Info("refresh complete",
		logger.String("trigger", p.Trigger),
		logger.String("run_id", report.RunID),
		logger.Int("anomalies", report.Anomalies))
	return nil
}

var _ queue.Job = (*RefreshJob)(nil)
