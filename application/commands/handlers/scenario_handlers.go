package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/application/ports"
	"causemap/application/sagas"
	"causemap/domain/core/valueobjects"
	"causemap/domain/events"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

// scenarioCaptureLockTTL bounds how long a capture can hold the
// per-graph lock before it expires on its own.
const scenarioCaptureLockTTL = 30

// CaptureScenarioHandler freezes graph state into a named scenario. A
// distributed lock serializes captures per graph so two concurrent
// requests cannot race past the retention limit together.
type CaptureScenarioHandler struct {
	graphRepo    ports.GraphRepository
	scenarioRepo ports.ScenarioRepository
	eventStore   ports.EventStore
	lock         ports.DistributedLock
	retention    scenario.RetentionPolicy
	logger       *zap.Logger
}

// NewCaptureScenarioHandler creates a new handler instance.
func NewCaptureScenarioHandler(
	graphRepo ports.GraphRepository,
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	lock ports.DistributedLock,
	retention scenario.RetentionPolicy,
	logger *zap.Logger,
) *CaptureScenarioHandler {
	return &CaptureScenarioHandler{
		graphRepo:    graphRepo,
		scenarioRepo: scenarioRepo,
		eventStore:   eventStore,
		lock:         lock,
		retention:    retention,
		logger:       logger,
	}
}

// Handle executes the capture scenario command and returns the new
// scenario.
func (h *CaptureScenarioHandler) Handle(ctx context.Context, cmd commands.CaptureScenarioCommand) (*scenario.Scenario, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	graph, err := loadOwnedGraph(ctx, h.graphRepo, cmd.GraphID, cmd.UserID)
	if err != nil {
		return nil, err
	}

	lockKey := "scenario-capture:" + cmd.GraphID
	if err := h.lock.Acquire(ctx, lockKey, scenarioCaptureLockTTL); err != nil {
		return nil, pkgerrors.ErrConcurrentModification
	}
	defer func() {
		if err := h.lock.Release(ctx, lockKey); err != nil {
			h.logger.Warn("Failed to release capture lock",
				zap.String("resource", lockKey),
				zap.Error(err),
			)
		}
	}()

	count, err := h.scenarioRepo.CountByGraphID(ctx, graph.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to count scenarios: %w", err)
	}
	if h.retention.MaxScenarios > 0 && count >= h.retention.MaxScenarios {
		return nil, pkgerrors.NewConflictError(
			fmt.Sprintf("graph already has %d scenarios; delete one before capturing", count))
	}

	snap, err := scenario.Capture(graph, cmd.Name, cmd.Description, cmd.UserID)
	if err != nil {
		return nil, err
	}

	// Save and outbox write hit different tables; a saga keeps them
	// consistent by deleting the scenario if the event write fails.
	captureSaga := sagas.New("capture-scenario", h.logger,
		sagas.Step{
			Name: "save-scenario",
			Execute: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return nil, h.scenarioRepo.Save(ctx, snap)
			},
			Compensate: func(ctx context.Context, _ interface{}) error {
				return h.scenarioRepo.Delete(ctx, snap.ID())
			},
		},
		sagas.Step{
			Name:       "store-captured-event",
			MaxRetries: 3,
			Execute: func(ctx context.Context, _ interface{}) (interface{}, error) {
				captured := events.NewScenarioCaptured(snap.ID(), snap.GraphID(), snap.Name(), snap.Checksum(), time.Now())
				return nil, h.eventStore.SaveEvents(ctx, []events.DomainEvent{captured})
			},
		},
	)
	if _, err := captureSaga.Execute(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to capture scenario: %w", err)
	}

	h.logger.Info("Scenario captured",
		zap.String("graphID", cmd.GraphID),
		zap.String("scenarioID", snap.ID().String()),
		zap.String("checksum", snap.Checksum()),
		zap.Int("nodes", snap.NodeCount()),
		zap.Int("edges", snap.EdgeCount()),
	)
	return snap, nil
}

// DeleteScenarioHandler removes a captured scenario.
type DeleteScenarioHandler struct {
	graphRepo    ports.GraphRepository
	scenarioRepo ports.ScenarioRepository
	eventStore   ports.EventStore
	logger       *zap.Logger
}

// NewDeleteScenarioHandler creates a new handler instance.
func NewDeleteScenarioHandler(
	graphRepo ports.GraphRepository,
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	logger *zap.Logger,
) *DeleteScenarioHandler {
	return &DeleteScenarioHandler{
		graphRepo:    graphRepo,
		scenarioRepo: scenarioRepo,
		eventStore:   eventStore,
		logger:       logger,
	}
}

// Handle executes the delete scenario command. Ownership follows the
// parent graph: only the graph's owner may drop its scenarios.
func (h *DeleteScenarioHandler) Handle(ctx context.Context, cmd commands.DeleteScenarioCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	snap, err := loadOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, cmd.ScenarioID, cmd.UserID)
	if err != nil {
		return err
	}

	if err := h.scenarioRepo.Delete(ctx, snap.ID()); err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}

	deleted := events.NewScenarioDeleted(snap.ID(), snap.GraphID(), time.Now())
	if err := h.eventStore.SaveEvents(ctx, []events.DomainEvent{deleted}); err != nil {
		h.logger.Warn("Failed to store scenario event", zap.Error(err))
	}

	h.logger.Info("Scenario deleted",
		zap.String("scenarioID", cmd.ScenarioID),
		zap.String("graphID", snap.GraphID().String()),
	)
	return nil
}

// loadOwnedScenario fetches a scenario and verifies the caller owns its
// parent graph.
func loadOwnedScenario(
	ctx context.Context,
	scenarioRepo ports.ScenarioRepository,
	graphRepo ports.GraphRepository,
	scenarioID, userID string,
) (*scenario.Scenario, error) {
	id, err := valueobjects.NewScenarioIDFromString(scenarioID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid scenario ID")
	}

	snap, err := scenarioRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	graph, err := graphRepo.GetByID(ctx, snap.GraphID())
	if err != nil {
		return nil, err
	}
	if graph.UserID() != userID {
		return nil, pkgerrors.ErrUserNotAuthorized
	}
	return snap, nil
}
