package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/application/ports"
	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/diff"
)

// AddNodeHandler handles node additions.
type AddNodeHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	notifier   ports.ClientNotifier
	logger     *zap.Logger
}

// NewAddNodeHandler creates a new handler instance.
func NewAddNodeHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *AddNodeHandler {
	return &AddNodeHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// Handle executes the add node command and returns the new node.
func (h *AddNodeHandler) Handle(ctx context.Context, cmd commands.AddNodeCommand) (*entities.Node, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	before := graph.Snapshot()

	nodeType, err := entities.ParseNodeType(cmd.Type)
	if err != nil {
		return nil, err
	}
	title, err := valueobjects.NewTitle(cmd.Title)
	if err != nil {
		return nil, err
	}

	node, err := entities.NewNode(nodeType, title)
	if err != nil {
		return nil, err
	}

	if len(cmd.KRImpacts) > 0 {
		impacts, err := convertImpacts(cmd.KRImpacts)
		if err != nil {
			return nil, err
		}
		if err := node.SetKRImpacts(impacts); err != nil {
			return nil, err
		}
	}
	if cmd.View != nil {
		rect, err := valueobjects.NewViewRect(cmd.View.X, cmd.View.Y, cmd.View.W, cmd.View.H)
		if err != nil {
			return nil, err
		}
		node.MoveTo(rect)
	}

	if err := graph.AddNode(node); err != nil {
		return nil, err
	}

	if err := h.commit(ctx, graph, before, cmd.UserID); err != nil {
		return nil, err
	}

	h.logger.Info("Node added",
		zap.String("graphID", cmd.GraphID),
		zap.String("nodeID", node.ID().String()),
		zap.String("type", cmd.Type),
	)
	return node, nil
}

func (h *AddNodeHandler) commit(ctx context.Context, graph *aggregates.Graph, before diff.Snapshot, userID string) error {
	return commitGraph(ctx, h.graphRepo, h.eventStore, h.notifier, h.logger, graph, before, userID)
}

// UpdateNodeHandler handles node field updates.
type UpdateNodeHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	notifier   ports.ClientNotifier
	logger     *zap.Logger
}

// NewUpdateNodeHandler creates a new handler instance.
func NewUpdateNodeHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *UpdateNodeHandler {
	return &UpdateNodeHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// Handle executes the update node command.
func (h *UpdateNodeHandler) Handle(ctx context.Context, cmd commands.UpdateNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}
	before := graph.Snapshot()

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}

	if cmd.Title != nil {
		title, err := valueobjects.NewTitle(*cmd.Title)
		if err != nil {
			return err
		}
		if err := graph.UpdateNodeTitle(nodeID, title); err != nil {
			return err
		}
	}
	if cmd.Type != nil {
		nodeType, err := entities.ParseNodeType(*cmd.Type)
		if err != nil {
			return err
		}
		if err := graph.UpdateNodeType(nodeID, nodeType); err != nil {
			return err
		}
	}
	if cmd.KRImpacts != nil {
		impacts, err := convertImpacts(*cmd.KRImpacts)
		if err != nil {
			return err
		}
		if err := graph.SetNodeImpacts(nodeID, impacts); err != nil {
			return err
		}
	}

	if err := commitGraph(ctx, h.graphRepo, h.eventStore, h.notifier, h.logger, graph, before, cmd.UserID); err != nil {
		return err
	}

	h.logger.Info("Node updated",
		zap.String("graphID", cmd.GraphID),
		zap.String("nodeID", cmd.NodeID),
	)
	return nil
}

// MoveNodeHandler handles canvas placement updates. Moves never touch
// the structural state, so no delta notification is produced.
type MoveNodeHandler struct {
	graphRepo ports.GraphRepository
	logger    *zap.Logger
}

// NewMoveNodeHandler creates a new handler instance.
func NewMoveNodeHandler(graphRepo ports.GraphRepository, logger *zap.Logger) *MoveNodeHandler {
	return &MoveNodeHandler{graphRepo: graphRepo, logger: logger}
}

// Handle executes the move node command.
func (h *MoveNodeHandler) Handle(ctx context.Context, cmd commands.MoveNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	rect, err := valueobjects.NewViewRect(cmd.View.X, cmd.View.Y, cmd.View.W, cmd.View.H)
	if err != nil {
		return err
	}

	if err := graph.MoveNode(nodeID, rect); err != nil {
		return err
	}
	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

// DeleteNodeHandler handles node removal with edge cascade.
type DeleteNodeHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	notifier   ports.ClientNotifier
	logger     *zap.Logger
}

// NewDeleteNodeHandler creates a new handler instance.
func NewDeleteNodeHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
) *DeleteNodeHandler {
	return &DeleteNodeHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// Handle executes the delete node command.
func (h *DeleteNodeHandler) Handle(ctx context.Context, cmd commands.DeleteNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}
	before := graph.Snapshot()

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	if err := graph.RemoveNode(nodeID); err != nil {
		return err
	}

	if err := commitGraph(ctx, h.graphRepo, h.eventStore, h.notifier, h.logger, graph, before, cmd.UserID); err != nil {
		return err
	}

	h.logger.Info("Node deleted",
		zap.String("graphID", cmd.GraphID),
		zap.String("nodeID", cmd.NodeID),
	)
	return nil
}

// commitGraph persists the aggregate, stores its events in the outbox,
// and pushes the structural delta to the owner's open canvases. The
// notification is best-effort; persistence is not.
func commitGraph(
	ctx context.Context,
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	notifier ports.ClientNotifier,
	logger *zap.Logger,
	graph *aggregates.Graph,
	before diff.Snapshot,
	userID string,
) error {
	if err := graphRepo.Save(ctx, graph); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	if err := eventStore.SaveEvents(ctx, graph.GetUncommittedEvents()); err != nil {
		logger.Warn("Failed to store graph events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()

	if notifier != nil {
		delta := diff.Delta(before, graph.Snapshot())
		if !delta.IsEmpty() {
			if err := notifier.NotifyGraphChanged(ctx, userID, delta); err != nil {
				logger.Debug("Failed to notify canvas clients", zap.Error(err))
			}
		}
	}
	return nil
}

func convertImpacts(inputs []commands.KRImpactInput) ([]valueobjects.KRImpact, error) {
	impacts := make([]valueobjects.KRImpact, 0, len(inputs))
	for _, in := range inputs {
		imp, err := valueobjects.NewKRImpact(in.KRID, in.DeltaP50, in.Confidence)
		if err != nil {
			return nil, err
		}
		impacts = append(impacts, imp)
	}
	return impacts, nil
}
