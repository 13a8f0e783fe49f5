package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/application/ports"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
)

// ConnectNodesHandler handles edge creation between nodes.
type ConnectNodesHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	notifier   ports.ClientNotifier
	logger     *zap.Logger
}

// NewConnectNodesHandler creates a new handler instance.
func NewConnectNodesHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *ConnectNodesHandler {
	return &ConnectNodesHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// Handle executes the connect nodes command and returns the new edge.
func (h *ConnectNodesHandler) Handle(ctx context.Context, cmd commands.ConnectNodesCommand) (*entities.Edge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	before := graph.Snapshot()

	from, err := valueobjects.NewNodeIDFromString(cmd.FromID)
	if err != nil {
		return nil, err
	}
	to, err := valueobjects.NewNodeIDFromString(cmd.ToID)
	if err != nil {
		return nil, err
	}
	kind, err := entities.ParseEdgeKind(cmd.Kind)
	if err != nil {
		return nil, err
	}

	edge, err := graph.ConnectNodes(from, to, kind, cmd.Weight)
	if err != nil {
		return nil, err
	}

	if err := commitGraph(ctx, h.graphRepo, h.eventStore, h.notifier, h.logger, graph, before, cmd.UserID); err != nil {
		return nil, err
	}

	h.logger.Info("Nodes connected",
		zap.String("graphID", cmd.GraphID),
		zap.String("edgeID", edge.ID().String()),
		zap.String("kind", cmd.Kind),
	)
	return edge, nil
}

// UpdateEdgeHandler handles edge endpoint, kind, and weight changes.
type UpdateEdgeHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	notifier   ports.ClientNotifier
	logger     *zap.Logger
}

// NewUpdateEdgeHandler creates a new handler instance.
func NewUpdateEdgeHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *UpdateEdgeHandler {
	return &UpdateEdgeHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// Handle executes the update edge command. Retargeting keeps the edge's
// identity: a retargeted edge reads as modified, not as a remove plus an
// add.
func (h *UpdateEdgeHandler) Handle(ctx context.Context, cmd commands.UpdateEdgeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}
	before := graph.Snapshot()

	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return err
	}

	if cmd.FromID != nil && cmd.ToID != nil {
		from, err := valueobjects.NewNodeIDFromString(*cmd.FromID)
		if err != nil {
			return err
		}
		to, err := valueobjects.NewNodeIDFromString(*cmd.ToID)
		if err != nil {
			return err
		}
		if err := graph.RetargetEdge(edgeID, from, to); err != nil {
			return err
		}
	}
	if cmd.Kind != nil {
		kind, err := entities.ParseEdgeKind(*cmd.Kind)
		if err != nil {
			return err
		}
		if err := graph.UpdateEdgeKind(edgeID, kind); err != nil {
			return err
		}
	}
	if cmd.Weight != nil {
		if err := graph.UpdateEdgeWeight(edgeID, cmd.Weight); err != nil {
			return err
		}
	}
	if cmd.ClearWeight {
		if err := graph.UpdateEdgeWeight(edgeID, nil); err != nil {
			return err
		}
	}

	if err := commitGraph(ctx, h.graphRepo, h.eventStore, h.notifier, h.logger, graph, before, cmd.UserID); err != nil {
		return err
	}

	h.logger.Info("Edge updated",
		zap.String("graphID", cmd.GraphID),
		zap.String("edgeID", cmd.EdgeID),
	)
	return nil
}

// DeleteEdgeHandler handles edge removal.
type DeleteEdgeHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	notifier   ports.ClientNotifier
	logger     *zap.Logger
}

// NewDeleteEdgeHandler creates a new handler instance.
func NewDeleteEdgeHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *DeleteEdgeHandler {
	return &DeleteEdgeHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// Handle executes the delete edge command.
func (h *DeleteEdgeHandler) Handle(ctx context.Context, cmd commands.DeleteEdgeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}
	before := graph.Snapshot()

	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return err
	}
	if err := graph.RemoveEdge(edgeID); err != nil {
		return err
	}

	if err := commitGraph(ctx, h.graphRepo, h.eventStore, h.notifier, h.logger, graph, before, cmd.UserID); err != nil {
		return err
	}

	h.logger.Info("Edge deleted",
		zap.String("graphID", cmd.GraphID),
		zap.String("edgeID", cmd.EdgeID),
	)
	return nil
}
