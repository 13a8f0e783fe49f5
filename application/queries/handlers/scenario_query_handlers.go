package handlers

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"causemap/application/ports"
	"causemap/application/queries"
	"causemap/domain/core/valueobjects"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

// GetScenarioHandler serves single scenario reads.
type GetScenarioHandler struct {
	scenarioRepo ports.ScenarioRepository
	graphRepo    ports.GraphRepository
	logger       *zap.Logger
}

// NewGetScenarioHandler creates a new handler instance.
func NewGetScenarioHandler(
	scenarioRepo ports.ScenarioRepository,
	graphRepo ports.GraphRepository,
	logger *zap.Logger,
) *GetScenarioHandler {
	return &GetScenarioHandler{
		scenarioRepo: scenarioRepo,
		graphRepo:    graphRepo,
		logger:       logger,
	}
}

// Handle executes the get scenario query.
func (h *GetScenarioHandler) Handle(ctx context.Context, query queries.GetScenarioQuery) (*queries.GetScenarioResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	snap, err := fetchOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, query.ScenarioID, query.UserID)
	if err != nil {
		return nil, err
	}

	return &queries.GetScenarioResult{
		ID:            snap.ID().String(),
		GraphID:       snap.GraphID().String(),
		Name:          snap.Name(),
		Description:   snap.Description(),
		Nodes:         recordNodeViews(snap.Nodes()),
		Edges:         recordEdgeViews(snap.Edges()),
		SchemaVersion: snap.SchemaVersion(),
		Checksum:      snap.Checksum(),
		CreatedAt:     snap.CreatedAt(),
		CreatedBy:     snap.CreatedBy(),
	}, nil
}

// ListScenariosHandler serves scenario list reads for a graph.
type ListScenariosHandler struct {
	scenarioRepo ports.ScenarioRepository
	graphRepo    ports.GraphRepository
	logger       *zap.Logger
}

// NewListScenariosHandler creates a new handler instance.
func NewListScenariosHandler(
	scenarioRepo ports.ScenarioRepository,
	graphRepo ports.GraphRepository,
	logger *zap.Logger,
) *ListScenariosHandler {
	return &ListScenariosHandler{
		scenarioRepo: scenarioRepo,
		graphRepo:    graphRepo,
		logger:       logger,
	}
}

// Handle executes the list scenarios query.
func (h *ListScenariosHandler) Handle(ctx context.Context, query queries.ListScenariosQuery) (*queries.ListScenariosResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	graph, err := fetchOwnedGraph(ctx, h.graphRepo, query.GraphID, query.UserID)
	if err != nil {
		return nil, err
	}

	scenarios, err := h.scenarioRepo.ListByGraphID(ctx, graph.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	summaries := make([]queries.ScenarioSummary, 0, len(scenarios))
	for _, s := range scenarios {
		summaries = append(summaries, queries.ScenarioSummary{
			ID:          s.ID().String(),
			Name:        s.Name(),
			Description: s.Description(),
			NodeCount:   s.NodeCount(),
			EdgeCount:   s.EdgeCount(),
			Checksum:    s.Checksum(),
			CreatedAt:   s.CreatedAt(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return &queries.ListScenariosResult{
		GraphID:   query.GraphID,
		Scenarios: summaries,
		Total:     len(summaries),
	}, nil
}

// fetchOwnedScenario loads a scenario and verifies the caller owns its
// parent graph.
func fetchOwnedScenario(
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

func recordNodeViews(records []scenario.NodeRecord) []queries.NodeView {
	views := make([]queries.NodeView, 0, len(records))
	for _, rec := range records {
		view := queries.NodeView{
			ID:    rec.ID,
			Type:  rec.Type,
			Title: rec.Title,
		}
		for _, imp := range rec.KRImpacts {
			view.KRImpacts = append(view.KRImpacts, queries.KRImpactView{
				KRID:       imp.KRID,
				DeltaP50:   imp.DeltaP50,
				Confidence: imp.Confidence,
			})
		}
		if rec.View != nil {
			view.View = &queries.ViewRectView{X: rec.View.X, Y: rec.View.Y, W: rec.View.W, H: rec.View.H}
		}
		views = append(views, view)
	}
	return views
}

func recordEdgeViews(records []scenario.EdgeRecord) []queries.EdgeView {
	views := make([]queries.EdgeView, 0, len(records))
	for _, rec := range records {
		views = append(views, queries.EdgeView{
			ID:     rec.ID,
			From:   rec.From,
			To:     rec.To,
			Kind:   rec.Kind,
			Weight: rec.Weight,
		})
	}
	return views
}
