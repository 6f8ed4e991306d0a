package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinSight/internal/handler/api"
	mid "FinSight/internal/middleware"
	"FinSight/internal/usecase"
	pkgch "FinSight/pkg/clickhouse"
	"FinSight/pkg/config"
	xhttp "FinSight/pkg/http"
	pkgkafka "FinSight/pkg/kafka"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/queue"
)

// App encapsulates the entire application lifecycle: Kafka ingestion, the
// batch refresh loop and the HTTP result views.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	buffer     *mid.IngestBuffer
	queue      *queue.RedisQueue
	handler    *api.ViewsEchoHandler
	coord      *usecase.RefreshCoordinator
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	buffer *mid.IngestBuffer,
	q *queue.RedisQueue,
	handler *api.ViewsEchoHandler,
	coord *usecase.RefreshCoordinator,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		consumer: consumer,
		kh:       kh,
		buffer:   buffer,
		queue:    q,
		handler:  handler,
		coord:    coord,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ingest buffer first so the consumer never lands on a dead sink
	a.buffer.Start(ctx)
	a.l.Info("ingest buffer started")

	if a.consumer != nil && len(a.cfg.Kafka.Brokers) > 0 {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.l.Error("queue start error", applogger.Error(err))
		} else {
			a.l.Info("refresh queue started")
		}
	}

	if a.cfg.Analytics.RefreshInterval > 0 {
		go a.refreshLoop(ctx)
		a.l.Info("refresh scheduler started",
			applogger.Duration("interval", a.cfg.Analytics.RefreshInterval))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// refreshLoop triggers periodic pipeline runs. With a queue the trigger is
// enqueued so any instance can pick it up; without one the run executes here.
func (a *App) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Analytics.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.queue != nil {
				if err := a.queue.PublishMessage(ctx, "refresh", usecase.RefreshPayload{Trigger: "scheduler"}); err != nil {
					a.l.Error("enqueue scheduled refresh", applogger.Error(err))
				}
				continue
			}
			if _, err := a.coord.Refresh(ctx); err != nil && err != usecase.ErrRefreshInProgress {
				a.l.Error("scheduled refresh", applogger.Error(err))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Stop accepting ingestion before draining the buffer
	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}

	a.buffer.Stop()

	if a.queue != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.queue.Stop(stopCtx); err != nil {
			a.l.Warn("queue stop error", applogger.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
