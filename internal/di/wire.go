//go:build wireinject
// +build wireinject

package di

import (
	"SPPredict/pkg/config"
	"SPPredict/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideObjectStore,

		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Repositories
		ProvideMarketDataProvider,
		ProvidePredictionPublisher,
		ProvidePredictionHistory,

		// Services
		ProvideUpstreamLimiter,
		ProvideAPILimiter,
		ProvideIndicatorCalculator,
		ProvideFeatureBuilder,
		ProvideInference,

		// Use cases
		ProvideMarketData,
		ProvidePrediction,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
