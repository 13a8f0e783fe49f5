package di

import (
	"context"
	"fmt"
	"net/http"

	"causemap/application/commands"
	"causemap/application/commands/bus"
	cmdhandlers "causemap/application/commands/handlers"
	"causemap/application/ports"
	"causemap/application/queries"
	querybus "causemap/application/queries/bus"
	qryhandlers "causemap/application/queries/handlers"
	"causemap/application/services"
	domainconfig "causemap/domain/config"
	"causemap/domain/scenario"
	"causemap/infrastructure/config"
	"causemap/infrastructure/messaging/eventbridge"
	"causemap/infrastructure/messaging/websocket"
	dynamopersistence "causemap/infrastructure/persistence/dynamodb"
	"causemap/interfaces/http/rest"
	"causemap/interfaces/http/rest/handlers"
	"causemap/interfaces/http/rest/middleware"
	"causemap/pkg/auth"
	pkgerrors "causemap/pkg/errors"
	"causemap/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideDomainConfig selects the business rule limits for the
// environment, with the comparison tolerance taken from deployment
// configuration.
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)
	dc.ComparisonTolerance = cfg.ComparisonTolerance
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return dc, nil
}

// ProvideAWSConfig creates AWS configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client.
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client.
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideGraphRepository creates the graph repository.
func ProvideGraphRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.GraphRepository {
	return dynamopersistence.NewGraphRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideScenarioRepository creates the scenario repository.
func ProvideScenarioRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ScenarioRepository {
	return dynamopersistence.NewScenarioRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventStore creates the outbox-backed event store. The concrete
// type is exposed because the outbox processor needs the pending-event
// operations that are not part of the port.
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config) *dynamopersistence.EventStore {
	return dynamopersistence.NewEventStore(client, cfg.OutboxTable)
}

// ProvideEventStorePort narrows the event store to its port.
func ProvideEventStorePort(es *dynamopersistence.EventStore) ports.EventStore {
	return es
}

// ProvideDistributedLock creates the capture lock.
func ProvideDistributedLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DistributedLock {
	return dynamopersistence.NewDistributedLock(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates the EventBridge publisher.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideClientNotifier creates the WebSocket notifier, or nil when no
// endpoint is configured. Command handlers treat a nil notifier as
// real-time sync disabled.
func ProvideClientNotifier(
	awsCfg aws.Config,
	client *awsdynamodb.Client,
	cfg *config.Config,
	logger *zap.Logger,
) ports.ClientNotifier {
	if cfg.WebSocketEndpoint == "" {
		return nil
	}
	return websocket.NewNotifier(awsCfg, client, cfg.ConnectionsTable, cfg.WebSocketEndpoint, logger)
}

// ProvideOutboxProcessor creates the outbox relay.
func ProvideOutboxProcessor(
	eventStore *dynamopersistence.EventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *dynamopersistence.OutboxProcessor {
	return dynamopersistence.NewOutboxProcessor(eventStore, publisher, logger)
}

// ProvideMetrics creates the CloudWatch metrics recorder. When metrics
// are disabled the recorder keeps its interface but drops every datum.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("CauseMap/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideTracer creates the X-Ray tracer, or nil when tracing is
// disabled. The router skips the tracing middleware for a nil tracer.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("causemap-backend")
}

// ProvideRetentionPolicy derives the scenario retention policy from the
// domain limits.
func ProvideRetentionPolicy(dc *domainconfig.DomainConfig) scenario.RetentionPolicy {
	policy := scenario.DefaultRetentionPolicy()
	policy.MaxScenarios = dc.MaxScenariosPerGraph
	return policy
}

// ProvideScenarioMaintenance creates the retention pruning service.
func ProvideScenarioMaintenance(
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	policy scenario.RetentionPolicy,
	logger *zap.Logger,
) *services.ScenarioMaintenanceService {
	return services.NewScenarioMaintenanceService(scenarioRepo, eventStore, policy, logger)
}

// ProvideJWTValidator creates the token validator.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideIPRateLimiter creates the per-IP limiter.
func ProvideIPRateLimiter() *auth.IPRateLimiter {
	return auth.NewIPRateLimiter(300)
}

// ProvideUserRateLimiter creates the per-user limiter. Lambda instances
// share no memory, so they throttle through DynamoDB instead of the
// in-process window.
func ProvideUserRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.UserRateLimiter {
	if cfg.IsLambda {
		return auth.NewUserRateLimiterFrom(
			auth.NewDistributedUserRateLimiter(client, cfg.DynamoDBTable, 120),
		)
	}
	return auth.NewUserRateLimiter(120)
}

// ProvideErrorHandler creates the HTTP error translator.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideCache creates the in-process cache used to memoize comparison
// results.
func ProvideCache() ports.Cache {
	return NewInMemoryCache()
}

// ProvideCreateGraphHandler creates the typed create-graph handler used
// directly by the REST layer.
func ProvideCreateGraphHandler(graphRepo ports.GraphRepository, eventStore ports.EventStore, logger *zap.Logger) *cmdhandlers.CreateGraphHandler {
	return cmdhandlers.NewCreateGraphHandler(graphRepo, eventStore, logger)
}

// ProvideAddNodeHandler creates the typed add-node handler.
func ProvideAddNodeHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *cmdhandlers.AddNodeHandler {
	return cmdhandlers.NewAddNodeHandler(graphRepo, eventStore, notifier, logger)
}

// ProvideConnectNodesHandler creates the typed connect-nodes handler.
func ProvideConnectNodesHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *cmdhandlers.ConnectNodesHandler {
	return cmdhandlers.NewConnectNodesHandler(graphRepo, eventStore, notifier, logger)
}

// ProvideCaptureScenarioHandler creates the typed capture handler.
func ProvideCaptureScenarioHandler(
	graphRepo ports.GraphRepository,
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	lock ports.DistributedLock,
	retention scenario.RetentionPolicy,
	logger *zap.Logger,
) *cmdhandlers.CaptureScenarioHandler {
	return cmdhandlers.NewCaptureScenarioHandler(graphRepo, scenarioRepo, eventStore, lock, retention, logger)
}

// ProvideCommandBus creates the command bus with every mutation handler
// registered behind the validation, logging, and metrics pipeline.
// Result-bearing creates bypass the bus and are provided as typed
// handlers instead.
func ProvideCommandBus(
	graphRepo ports.GraphRepository,
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(
		bus.ValidationMiddleware(),
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)

	renameGraph := cmdhandlers.NewRenameGraphHandler(graphRepo, logger)
	deleteGraph := cmdhandlers.NewDeleteGraphHandler(graphRepo, scenarioRepo, eventStore, logger)
	updateNode := cmdhandlers.NewUpdateNodeHandler(graphRepo, eventStore, notifier, logger)
	moveNode := cmdhandlers.NewMoveNodeHandler(graphRepo, logger)
	deleteNode := cmdhandlers.NewDeleteNodeHandler(graphRepo, eventStore, notifier, logger)
	updateEdge := cmdhandlers.NewUpdateEdgeHandler(graphRepo, eventStore, notifier, logger)
	deleteEdge := cmdhandlers.NewDeleteEdgeHandler(graphRepo, eventStore, notifier, logger)
	deleteScenario := cmdhandlers.NewDeleteScenarioHandler(graphRepo, scenarioRepo, eventStore, logger)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.RenameGraphCommand{}, dispatch(func(ctx context.Context, cmd commands.RenameGraphCommand) error {
			return renameGraph.Handle(ctx, cmd)
		})},
		{commands.DeleteGraphCommand{}, dispatch(func(ctx context.Context, cmd commands.DeleteGraphCommand) error {
			return deleteGraph.Handle(ctx, cmd)
		})},
		{commands.UpdateNodeCommand{}, dispatch(func(ctx context.Context, cmd commands.UpdateNodeCommand) error {
			return updateNode.Handle(ctx, cmd)
		})},
		{commands.MoveNodeCommand{}, dispatch(func(ctx context.Context, cmd commands.MoveNodeCommand) error {
			return moveNode.Handle(ctx, cmd)
		})},
		{commands.DeleteNodeCommand{}, dispatch(func(ctx context.Context, cmd commands.DeleteNodeCommand) error {
			return deleteNode.Handle(ctx, cmd)
		})},
		{commands.UpdateEdgeCommand{}, dispatch(func(ctx context.Context, cmd commands.UpdateEdgeCommand) error {
			return updateEdge.Handle(ctx, cmd)
		})},
		{commands.DeleteEdgeCommand{}, dispatch(func(ctx context.Context, cmd commands.DeleteEdgeCommand) error {
			return deleteEdge.Handle(ctx, cmd)
		})},
		{commands.DeleteScenarioCommand{}, dispatch(func(ctx context.Context, cmd commands.DeleteScenarioCommand) error {
			return deleteScenario.Handle(ctx, cmd)
		})},
	}

	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, pipeline.Execute(reg.handler)); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// dispatch adapts a typed handler function to the command bus contract.
func dispatch[C bus.Command](handle func(ctx context.Context, cmd C) error) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return handle(ctx, typed)
	})
}

// ProvideQueryBus creates the query bus. Every query gets logging and
// metrics; scenario-to-scenario comparisons additionally get caching,
// which is sound because their inputs are immutable snapshots.
// Comparisons against the live graph are never cached.
func ProvideQueryBus(
	graphRepo ports.GraphRepository,
	scenarioRepo ports.ScenarioRepository,
	dc *domainconfig.DomainConfig,
	cfg *config.Config,
	cache ports.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	logging := querybus.NewLoggingMiddleware(logger)
	metricsMw := querybus.NewMetricsMiddleware(metrics)
	caching := querybus.NewCachingMiddleware(cache, cfg.ComparisonCacheTTL)

	wrap := func(handler querybus.QueryHandler) querybus.QueryHandler {
		return logging.Wrap(metricsMw.Wrap(handler))
	}

	getGraph := qryhandlers.NewGetGraphHandler(graphRepo, logger)
	listGraphs := qryhandlers.NewListGraphsHandler(graphRepo, logger)
	getScenario := qryhandlers.NewGetScenarioHandler(scenarioRepo, graphRepo, logger)
	listScenarios := qryhandlers.NewListScenariosHandler(scenarioRepo, graphRepo, logger)
	compareScenarios := qryhandlers.NewCompareScenariosHandler(scenarioRepo, graphRepo, dc, logger)
	compareLive := qryhandlers.NewCompareGraphLiveHandler(scenarioRepo, graphRepo, dc, logger)
	summary := qryhandlers.NewComparisonSummaryHandler(scenarioRepo, graphRepo, dc, logger)

	compareHandler := ask(func(ctx context.Context, q queries.CompareScenariosQuery) (interface{}, error) {
		return compareScenarios.Handle(ctx, q)
	})
	if dc.EnableComparisonCaching {
		compareHandler = caching.Wrap(compareHandler)
	}

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetGraphQuery{}, ask(func(ctx context.Context, q queries.GetGraphQuery) (interface{}, error) {
			return getGraph.Handle(ctx, q)
		})},
		{queries.ListGraphsQuery{}, ask(func(ctx context.Context, q queries.ListGraphsQuery) (interface{}, error) {
			return listGraphs.Handle(ctx, q)
		})},
		{queries.GetScenarioQuery{}, ask(func(ctx context.Context, q queries.GetScenarioQuery) (interface{}, error) {
			return getScenario.Handle(ctx, q)
		})},
		{queries.ListScenariosQuery{}, ask(func(ctx context.Context, q queries.ListScenariosQuery) (interface{}, error) {
			return listScenarios.Handle(ctx, q)
		})},
		{queries.CompareScenariosQuery{}, compareHandler},
		{queries.CompareGraphLiveQuery{}, ask(func(ctx context.Context, q queries.CompareGraphLiveQuery) (interface{}, error) {
			return compareLive.Handle(ctx, q)
		})},
		{queries.ComparisonSummaryQuery{}, ask(func(ctx context.Context, q queries.ComparisonSummaryQuery) (interface{}, error) {
			return summary.Handle(ctx, q)
		})},
	}

	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, wrap(reg.handler)); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ask adapts a typed query handler function to the query bus contract.
func ask[Q querybus.Query](handle func(ctx context.Context, q Q) (interface{}, error)) querybus.QueryHandler {
	return querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", query)
		}
		return handle(ctx, typed)
	})
}

// ProvideAuthMiddleware selects the authentication middleware for the
// deployment: JWT validation for the standalone server, trusted gateway
// headers when running behind the API Gateway authorizer.
func ProvideAuthMiddleware(
	cfg *config.Config,
	validator *auth.JWTValidator,
	ipLimiter *auth.IPRateLimiter,
	userLimiter *auth.UserRateLimiter,
	logger *zap.Logger,
) func(http.Handler) http.Handler {
	if cfg.IsLambda {
		return middleware.AuthenticateFromGateway(userLimiter, logger)
	}
	return middleware.Authenticate(validator, ipLimiter, userLimiter, logger)
}

// ProvideGraphRESTHandler creates the graph REST handler.
func ProvideGraphRESTHandler(
	createGraph *cmdhandlers.CreateGraphHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.GraphHandler {
	return handlers.NewGraphHandler(createGraph, commandBus, queryBus, errorHandler, logger)
}

// ProvideNodeRESTHandler creates the node REST handler.
func ProvideNodeRESTHandler(
	addNode *cmdhandlers.AddNodeHandler,
	commandBus *bus.CommandBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.NodeHandler {
	return handlers.NewNodeHandler(addNode, commandBus, errorHandler, logger)
}

// ProvideEdgeRESTHandler creates the edge REST handler.
func ProvideEdgeRESTHandler(
	connectNodes *cmdhandlers.ConnectNodesHandler,
	commandBus *bus.CommandBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.EdgeHandler {
	return handlers.NewEdgeHandler(connectNodes, commandBus, errorHandler, logger)
}

// ProvideScenarioRESTHandler creates the scenario REST handler.
func ProvideScenarioRESTHandler(
	capture *cmdhandlers.CaptureScenarioHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.ScenarioHandler {
	return handlers.NewScenarioHandler(capture, commandBus, queryBus, errorHandler, logger)
}

// ProvideCompareRESTHandler creates the comparison REST handler.
func ProvideCompareRESTHandler(
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.CompareHandler {
	return handlers.NewCompareHandler(queryBus, errorHandler, logger)
}

// ProvideRouter assembles the HTTP router.
func ProvideRouter(
	graphs *handlers.GraphHandler,
	nodes *handlers.NodeHandler,
	edges *handlers.EdgeHandler,
	scenarios *handlers.ScenarioHandler,
	compare *handlers.CompareHandler,
	authenticate func(http.Handler) http.Handler,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(graphs, nodes, edges, scenarios, compare, authenticate, tracer, logger)
}
