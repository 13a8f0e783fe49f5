package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/application/ports"
	"causemap/domain/core/aggregates"
	"causemap/domain/core/valueobjects"
	pkgerrors "causemap/pkg/errors"
)

// CreateGraphHandler handles graph creation.
type CreateGraphHandler struct {
	graphRepo  ports.GraphRepository
	eventStore ports.EventStore
	logger     *zap.Logger
}

// NewCreateGraphHandler creates a new handler instance.
func NewCreateGraphHandler(
	graphRepo ports.GraphRepository,
	eventStore ports.EventStore,
	logger *zap.Logger,
) *CreateGraphHandler {
	return &CreateGraphHandler{
		graphRepo:  graphRepo,
		eventStore: eventStore,
		logger:     logger,
	}
}

// Handle executes the create graph command and returns the new graph.
func (h *CreateGraphHandler) Handle(ctx context.Context, cmd commands.CreateGraphCommand) (*aggregates.Graph, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	graph, err := aggregates.NewGraph(cmd.UserID, cmd.Name)
	if err != nil {
		return nil, err
	}

	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return nil, fmt.Errorf("failed to save graph: %w", err)
	}

	if err := h.eventStore.SaveEvents(ctx, graph.GetUncommittedEvents()); err != nil {
		h.logger.Warn("Failed to store graph events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()

	h.logger.Info("Graph created",
		zap.String("graphID", graph.ID().String()),
		zap.String("userID", cmd.UserID),
	)
	return graph, nil
}

// RenameGraphHandler handles graph renames.
type RenameGraphHandler struct {
	graphRepo ports.GraphRepository
	logger    *zap.Logger
}

// NewRenameGraphHandler creates a new handler instance.
func NewRenameGraphHandler(graphRepo ports.GraphRepository, logger *zap.Logger) *RenameGraphHandler {
	return &RenameGraphHandler{graphRepo: graphRepo, logger: logger}
}

// Handle executes the rename graph command.
func (h *RenameGraphHandler) Handle(ctx context.Context, cmd commands.RenameGraphCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}

	if err := graph.Rename(cmd.Name); err != nil {
		return err
	}
	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	graph.MarkEventsAsCommitted()

	h.logger.Info("Graph renamed", zap.String("graphID", cmd.GraphID))
	return nil
}

// DeleteGraphHandler handles graph deletion.
type DeleteGraphHandler struct {
	graphRepo    ports.GraphRepository
	scenarioRepo ports.ScenarioRepository
	eventStore   ports.EventStore
	logger       *zap.Logger
}

// NewDeleteGraphHandler creates a new handler instance.
func NewDeleteGraphHandler(
	graphRepo ports.GraphRepository,
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	logger *zap.Logger,
) *DeleteGraphHandler {
	return &DeleteGraphHandler{
		graphRepo:    graphRepo,
		scenarioRepo: scenarioRepo,
		eventStore:   eventStore,
		logger:       logger,
	}
}

// Handle deletes a graph along with its scenarios and stored events.
func (h *DeleteGraphHandler) Handle(ctx context.Context, cmd commands.DeleteGraphCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return err
	}

	scenarios, err := h.scenarioRepo.ListByGraphID(ctx, graph.ID())
	if err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}
	for _, s := range scenarios {
		if err := h.scenarioRepo.Delete(ctx, s.ID()); err != nil {
			h.logger.Warn("Failed to delete scenario during graph deletion",
				zap.String("scenarioID", s.ID().String()),
				zap.Error(err),
			)
		}
	}

	if err := h.graphRepo.Delete(ctx, graph.ID()); err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	if err := h.eventStore.DeleteEvents(ctx, graph.ID().String()); err != nil {
		h.logger.Warn("Failed to delete graph events", zap.Error(err))
	}

	h.logger.Info("Graph deleted",
		zap.String("graphID", cmd.GraphID),
		zap.Int("scenariosDeleted", len(scenarios)),
	)
	return nil
}

// loadOwnedGraph fetches a graph and verifies ownership.
func loadOwnedGraph(ctx context.Context, repo ports.GraphRepository, graphID, userID string) (*aggregates.Graph, error) {
	id, err := valueobjects.NewGraphIDFromString(graphID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid graph ID")
	}

	graph, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if graph.UserID() != userID {
		return nil, pkgerrors.ErrUserNotAuthorized
	}
	return graph, nil
}
