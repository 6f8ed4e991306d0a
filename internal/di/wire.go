//go:build wireinject
// +build wireinject

package di

import (
	"FinSight/pkg/config"
	"FinSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideObservationStore,
		ProvideObservationSink,
		ProvideObservationProvider,
		ProvideResultStore,
		ProvideRunWriter,
		ProvideResultReader,
		ProvideAlertPublisher,

		// Ingestion
		ProvideIngestBuffer,
		ProvideObservationsHandler,

		// Analytics use cases
		ProvidePipeline,
		ProvideRefreshCoordinator,
		ProvideQueue,
		ProvideViews,

		// HTTP
		ProvideViewsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
