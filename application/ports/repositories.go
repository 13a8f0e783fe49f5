package ports

import (
	"context"

	"causemap/domain/core/aggregates"
	"causemap/domain/core/valueobjects"
	"causemap/domain/events"
	"causemap/domain/scenario"
)

// GraphRepository defines the interface for graph persistence.
// This is a port in hexagonal architecture - the domain doesn't know
// about the implementation.
type GraphRepository interface {
	// Save persists a graph aggregate (create or update).
	Save(ctx context.Context, graph *aggregates.Graph) error

	// GetByID retrieves a graph with all of its nodes and edges.
	GetByID(ctx context.Context, id valueobjects.GraphID) (*aggregates.Graph, error)

	// GetByUserID retrieves all graphs owned by a user.
	GetByUserID(ctx context.Context, userID string) ([]*aggregates.Graph, error)

	// Delete removes a graph and all its nodes and edges.
	Delete(ctx context.Context, id valueobjects.GraphID) error
}

// ScenarioRepository defines the interface for scenario snapshot
// persistence. Scenarios are immutable: there is no update operation.
type ScenarioRepository interface {
	// Save persists a captured scenario.
	Save(ctx context.Context, s *scenario.Scenario) error

	// GetByID retrieves a scenario with its frozen snapshot.
	GetByID(ctx context.Context, id valueobjects.ScenarioID) (*scenario.Scenario, error)

	// ListByGraphID retrieves scenario metadata for a graph, newest first.
	ListByGraphID(ctx context.Context, graphID valueobjects.GraphID) ([]*scenario.Scenario, error)

	// CountByGraphID returns the number of scenarios captured for a graph.
	CountByGraphID(ctx context.Context, graphID valueobjects.GraphID) (int, error)

	// Delete removes a scenario.
	Delete(ctx context.Context, id valueobjects.ScenarioID) error
}

// EventStore defines the interface for event persistence with outbox
// semantics: saved events are relayed to the bus by a separate worker.
type EventStore interface {
	// SaveEvents persists domain events as pending outbox entries.
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate.
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// DeleteEvents removes all events for an aggregate.
	DeleteEvents(ctx context.Context, aggregateID string) error
}

// DistributedLock guards operations that must not run concurrently for
// the same resource across service instances.
type DistributedLock interface {
	// Acquire takes the lock for a resource, or fails if it is held.
	Acquire(ctx context.Context, resource string, ttlSeconds int) error

	// Release frees the lock.
	Release(ctx context.Context, resource string) error
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	// Publish sends a single event.
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events.
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus extends EventPublisher with subscription management.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type.
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler.
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events.
type EventHandler interface {
	// Handle processes an event.
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event.
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching. Comparison queries memoize
// results here, keyed by requesting user, scenario ids, and options.
type Cache interface {
	// Get retrieves a value from cache.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds.
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache.
	Clear(ctx context.Context) error
}

// ClientNotifier pushes change notifications to connected canvas
// clients.
type ClientNotifier interface {
	// NotifyGraphChanged tells a user's open canvases that a graph
	// changed, with the id-level delta of what moved.
	NotifyGraphChanged(ctx context.Context, userID string, payload interface{}) error
}
