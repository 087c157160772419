//go:build wireinject
// +build wireinject

package di

import (
	"AxPredict/pkg/config"
	"AxPredict/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// infrastructure
		ProvideCandleCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// candle providers
		ProvideExchangeSource,
		ProvideBrokerSource,
		ProvideMacroSource,
		ProvideStreamFeed,
		ProvideHistoryStore,
		ProvideLocalReader,

		// pipeline
		ProvideStrategy,
		ProvidePredictionPublisher,
		ProvidePredictor,

		// surface
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
