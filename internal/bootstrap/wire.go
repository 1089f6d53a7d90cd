//go:build wireinject

package bootstrap

import (
	"context"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideRegistry,
	ProvideFileStore,
	ProvideRedisClient,
	ProvideRateStore,
	ProvideDB,
	ProvideSources,
	ProvideMetricsRegistry,
	ProvideUpdaterMetrics,
	ProvidePublisher,
	ProvideUpdater,
)

// API injector: builds the HTTP handler + Cleanup
func InitAPI(ctx context.Context) (*API, func(), error) {
	wire.Build(
		infraSet,
		ProvideRefreshGuard,
		ProvideHistoryReader,
		ProvideRatesService,
		ProvideHandler,
		wire.Struct(new(API), "*"),
	)
	return nil, nil, nil
}

// Worker injector: builds the scheduler + Cleanup
func InitWorker(ctx context.Context) (*WorkerApp, func(), error) {
	wire.Build(
		infraSet,
		ProvideScheduler,
		wire.Struct(new(WorkerApp), "*"),
	)
	return nil, nil, nil
}
