//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"causemap/infrastructure/config"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideGraphRepository,
	ProvideScenarioRepository,
	ProvideEventStore,
	ProvideEventStorePort,
	ProvideDistributedLock,
	ProvideEventPublisher,
	ProvideClientNotifier,
	ProvideOutboxProcessor,
	ProvideMetrics,
	ProvideTracer,
	ProvideRetentionPolicy,
	ProvideScenarioMaintenance,
	ProvideJWTValidator,
	ProvideIPRateLimiter,
	ProvideUserRateLimiter,
	ProvideErrorHandler,
	ProvideCache,
	ProvideCreateGraphHandler,
	ProvideAddNodeHandler,
	ProvideConnectNodesHandler,
	ProvideCaptureScenarioHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideAuthMiddleware,
	ProvideGraphRESTHandler,
	ProvideNodeRESTHandler,
	ProvideEdgeRESTHandler,
	ProvideScenarioRESTHandler,
	ProvideCompareRESTHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
