package di

import (
	"causemap/application/commands/bus"
	"causemap/application/ports"
	querybus "causemap/application/queries/bus"
	"causemap/application/services"
	"causemap/infrastructure/config"
	dynamopersistence "causemap/infrastructure/persistence/dynamodb"
	"causemap/interfaces/http/rest"
	"causemap/pkg/observability"

	"go.uber.org/zap"
)

// Container holds the wired application dependencies the entrypoints
// need.
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Router          *rest.Router
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	GraphRepo       ports.GraphRepository
	ScenarioRepo    ports.ScenarioRepository
	OutboxProcessor *dynamopersistence.OutboxProcessor
	Maintenance     *services.ScenarioMaintenanceService
	Metrics         *observability.Metrics
	Tracer          *observability.Tracer
}
