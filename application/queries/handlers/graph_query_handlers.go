package handlers

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"causemap/application/ports"
	"causemap/application/queries"
	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	pkgerrors "causemap/pkg/errors"
)

// GetGraphHandler serves full graph reads for canvas rendering.
type GetGraphHandler struct {
	graphRepo ports.GraphRepository
	logger    *zap.Logger
}

// NewGetGraphHandler creates a new handler instance.
func NewGetGraphHandler(graphRepo ports.GraphRepository, logger *zap.Logger) *GetGraphHandler {
	return &GetGraphHandler{graphRepo: graphRepo, logger: logger}
}

// Handle executes the get graph query.
func (h *GetGraphHandler) Handle(ctx context.Context, query queries.GetGraphQuery) (*queries.GetGraphResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	graph, err := fetchOwnedGraph(ctx, h.graphRepo, query.GraphID, query.UserID)
	if err != nil {
		return nil, err
	}

	result := &queries.GetGraphResult{
		ID:        graph.ID().String(),
		Name:      graph.Name(),
		Nodes:     nodeViews(graph.Nodes()),
		Edges:     edgeViews(graph.Edges()),
		Version:   graph.Version(),
		UpdatedAt: graph.UpdatedAt(),
	}
	result.Stats = graphStats(len(result.Nodes), len(result.Edges))

	h.logger.Debug("Graph retrieved",
		zap.String("graphID", query.GraphID),
		zap.Int("nodeCount", result.Stats.NodeCount),
		zap.Int("edgeCount", result.Stats.EdgeCount),
	)
	return result, nil
}

// ListGraphsHandler serves graph list reads.
type ListGraphsHandler struct {
	graphRepo ports.GraphRepository
	logger    *zap.Logger
}

// NewListGraphsHandler creates a new handler instance.
func NewListGraphsHandler(graphRepo ports.GraphRepository, logger *zap.Logger) *ListGraphsHandler {
	return &ListGraphsHandler{graphRepo: graphRepo, logger: logger}
}

// Handle executes the list graphs query.
func (h *ListGraphsHandler) Handle(ctx context.Context, query queries.ListGraphsQuery) (*queries.ListGraphsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	graphs, err := h.graphRepo.GetByUserID(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	summaries := make([]queries.GraphSummary, 0, len(graphs))
	for _, g := range graphs {
		summaries = append(summaries, queries.GraphSummary{
			ID:        g.ID().String(),
			Name:      g.Name(),
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
			UpdatedAt: g.UpdatedAt(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return &queries.ListGraphsResult{Graphs: summaries, Total: len(summaries)}, nil
}

// fetchOwnedGraph loads a graph and verifies the caller owns it.
func fetchOwnedGraph(ctx context.Context, repo ports.GraphRepository, graphID, userID string) (*aggregates.Graph, error) {
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

func nodeViews(nodes map[string]*entities.Node) []queries.NodeView {
	views := make([]queries.NodeView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, nodeView(node))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

func nodeView(node *entities.Node) queries.NodeView {
	view := queries.NodeView{
		ID:        node.ID().String(),
		Type:      node.Type().String(),
		Title:     node.Title().String(),
		UpdatedAt: node.UpdatedAt(),
	}
	for _, imp := range node.KRImpacts() {
		view.KRImpacts = append(view.KRImpacts, queries.KRImpactView{
			KRID:       imp.KRID,
			DeltaP50:   imp.DeltaP50,
			Confidence: imp.Confidence,
		})
	}
	if rect := node.ViewRect(); rect != nil {
		view.View = &queries.ViewRectView{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H}
	}
	return view
}

func edgeViews(edges map[string]*entities.Edge) []queries.EdgeView {
	views := make([]queries.EdgeView, 0, len(edges))
	for _, edge := range edges {
		views = append(views, edgeView(edge))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

func edgeView(edge *entities.Edge) queries.EdgeView {
	return queries.EdgeView{
		ID:     edge.ID().String(),
		From:   edge.From().String(),
		To:     edge.To().String(),
		Kind:   edge.Kind().String(),
		Weight: edge.Weight(),
	}
}

// graphStats derives canvas sidebar statistics. Density is edges over
// the maximum possible for a simple directed graph of that size.
func graphStats(nodeCount, edgeCount int) queries.GraphStats {
	stats := queries.GraphStats{NodeCount: nodeCount, EdgeCount: edgeCount}
	if nodeCount > 1 {
		maxEdges := nodeCount * (nodeCount - 1)
		stats.Density = float64(edgeCount) / float64(maxEdges)
	}
	return stats
}
