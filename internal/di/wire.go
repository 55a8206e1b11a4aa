//go:build wireinject
// +build wireinject

package di

import (
	"Aegis/pkg/config"
	"Aegis/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Market data plane
		ProvideMarketStream,
		ProvideHistoryStore,
		ProvideMarketCollector,
		ProvideSnapshotSource,

		// Analytics collaborators
		ProvideForecaster,
		ProvideCouncil,
		ProvideReasoning,

		// Decision core
		ProvideOrchestrator,
		ProvideGovernor,
		ProvidePaperAccount,
		ProvideAccountSource,
		ProvideSessionClock,
		ProvideAlertQueue,

		// Persistence
		ProvideDecisionStore,
		ProvideDecisionPublisher,
		ProvideDecisionProcessor,
		ProvidePersistPipeline,
		ProvideDecisionsTopicHandler,

		// Engine and surface
		ProvideDecisionEngine,
		ProvideOpsHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
