// Package services holds application services that run outside the
// command bus, used by background workers where bus overhead buys
// nothing.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"causemap/application/ports"
	"causemap/domain/core/valueobjects"
	"causemap/domain/events"
	"causemap/domain/scenario"
)

// ScenarioMaintenanceService prunes scenarios that fall outside the
// retention policy. It runs from the relay worker, not the request
// path.
type ScenarioMaintenanceService struct {
	scenarioRepo ports.ScenarioRepository
	eventStore   ports.EventStore
	policy       scenario.RetentionPolicy
	logger       *zap.Logger
}

// NewScenarioMaintenanceService creates a new maintenance service.
func NewScenarioMaintenanceService(
	scenarioRepo ports.ScenarioRepository,
	eventStore ports.EventStore,
	policy scenario.RetentionPolicy,
	logger *zap.Logger,
) *ScenarioMaintenanceService {
	return &ScenarioMaintenanceService{
		scenarioRepo: scenarioRepo,
		eventStore:   eventStore,
		policy:       policy,
		logger:       logger,
	}
}

// PruneGraph removes scenarios for one graph that exceed the retention
// policy. Scenarios are walked oldest first so the count-based limit
// always drops the oldest captures. Returns the number pruned.
func (s *ScenarioMaintenanceService) PruneGraph(ctx context.Context, graphID valueobjects.GraphID) (int, error) {
	scenarios, err := s.scenarioRepo.ListByGraphID(ctx, graphID)
	if err != nil {
		return 0, fmt.Errorf("failed to list scenarios: %w", err)
	}

	now := time.Now()
	remaining := len(scenarios)
	pruned := 0

	// ListByGraphID returns newest first; walk from the tail.
	for i := len(scenarios) - 1; i >= 0; i-- {
		snap := scenarios[i]
		if !s.policy.ShouldPrune(snap.CreatedAt(), remaining, now) {
			break
		}

		if err := s.scenarioRepo.Delete(ctx, snap.ID()); err != nil {
			s.logger.Warn("Failed to prune scenario",
				zap.String("scenarioID", snap.ID().String()),
				zap.Error(err),
			)
			continue
		}

		deleted := events.NewScenarioDeleted(snap.ID(), graphID, now)
		if err := s.eventStore.SaveEvents(ctx, []events.DomainEvent{deleted}); err != nil {
			s.logger.Warn("Failed to store prune event", zap.Error(err))
		}

		remaining--
		pruned++
	}

	if pruned > 0 {
		s.logger.Info("Pruned scenarios",
			zap.String("graphID", graphID.String()),
			zap.Int("pruned", pruned),
			zap.Int("remaining", remaining),
		)
	}
	return pruned, nil
}
