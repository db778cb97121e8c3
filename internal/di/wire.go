//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"GridAdvisor/pkg/config"
	"GridAdvisor/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideCache,

		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Analysis components
		ProvideForecaster,
		ProvideAnomalyDetector,
		ProvideDecisionMaker,
		ProvidePipeline,
		ProvideAnalyzer,

		// Repositories and use cases
		ProvideLoadStore,
		ProvideMeterAnalysis,
		ProvideAnalysisJobHandler,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
