// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"FinSight/pkg/config"
	"FinSight/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	consumer, err := ProvideKafkaConsumer(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	clickHouseObservationStore := ProvideObservationStore(client)
	rawObservationSink := ProvideObservationSink(clickHouseObservationStore)
	metrics := ProvideMetrics()
	ingestBuffer := ProvideIngestBuffer(rawObservationSink, metrics, cfg)
	kafkaObservationsHandler := ProvideObservationsHandler(ingestBuffer, metrics, cfg)
	service, err := ProvideCache(cfg)
	if err != nil {
		return nil, err
	}
	observationProvider := ProvideObservationProvider(clickHouseObservationStore)
	chResultStore := ProvideResultStore(client, logger)
	resultStore := ProvideRunWriter(chResultStore)
	alertPublisher := ProvideAlertPublisher(cfg, producer)
	pipeline := ProvidePipeline(observationProvider, resultStore, alertPublisher, metrics, logger, cfg)
	refreshCoordinator := ProvideRefreshCoordinator(pipeline, service, logger, cfg)
	redisQueue := ProvideQueue(cfg, logger, service, refreshCoordinator)
	resultReader := ProvideResultReader(chResultStore)
	views := ProvideViews(resultReader, service, logger, cfg)
	viewsEchoHandler := ProvideViewsHandler(logger, views, refreshCoordinator, redisQueue)
	app := ProvideApp(cfg, logger, producer, consumer, kafkaObservationsHandler, ingestBuffer, redisQueue, viewsEchoHandler, refreshCoordinator, client)
	return app, nil
}
