//go:build wireinject
// +build wireinject

package di

import (
	"SentiPulse/pkg/config"
	"SentiPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideClickHouse,

		// Stores and use cases
		ProvideStores,
		ProvideQuery,
		ProvideDashboard,
		ProvideHub,
		ProvideEventPipeline,
		ProvideAggregator,
		ProvidePipeline,
		ProvideIngest,
		ProvideCatalog,
		ProvideUsers,
		ProvideScorer,

		// Background workers
		ProvideCollector,
		ProvideQueue,
		ProvideLimiter,
		ProvideScheduler,
		ProvideKafkaConsumer,

		// HTTP
		ProvideRouter,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeRunner wires the window pipeline for one-shot commands.
func InitializeRunner(cfg *config.Config) (*Runner, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideDatabase,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideClickHouse,
		ProvideStores,
		ProvideQuery,
		ProvideDashboard,
		ProvideHub,
		ProvideEventPipeline,
		ProvideAggregator,
		ProvidePipeline,
		ProvideRunner,
	)
	return &Runner{}, nil
}
