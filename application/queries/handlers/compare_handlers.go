package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"causemap/application/ports"
	"causemap/application/queries"
	"causemap/domain/config"
	"causemap/domain/core/entities"
	"causemap/domain/diff"
	pkgerrors "causemap/pkg/errors"
)

// CompareScenariosHandler diffs two captured scenarios of a graph.
type CompareScenariosHandler struct {
	scenarioRepo ports.ScenarioRepository
	graphRepo    ports.GraphRepository
	cfg          *config.DomainConfig
	logger       *zap.Logger
}

// NewCompareScenariosHandler creates a new handler instance.
func NewCompareScenariosHandler(
	scenarioRepo ports.ScenarioRepository,
	graphRepo ports.GraphRepository,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CompareScenariosHandler {
	return &CompareScenariosHandler{
		scenarioRepo: scenarioRepo,
		graphRepo:    graphRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// Handle executes the compare scenarios query.
func (h *CompareScenariosHandler) Handle(ctx context.Context, query queries.CompareScenariosQuery) (*queries.ComparisonResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	base, err := fetchOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, query.BaseID, query.UserID)
	if err != nil {
		return nil, err
	}
	target, err := fetchOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, query.TargetID, query.UserID)
	if err != nil {
		return nil, err
	}
	if !base.GraphID().Equals(target.GraphID()) {
		return nil, pkgerrors.ErrScenarioGraphMismatch
	}

	baseSnap, err := base.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load base snapshot: %w", err)
	}
	targetSnap, err := target.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load target snapshot: %w", err)
	}

	result := diff.Compare(baseSnap, targetSnap, h.compareOptions(query.Tolerance)...)

	view := comparisonView(result, query.IDsOnly)
	view.BaseChecksum = base.Checksum()
	view.TargetChecksum = target.Checksum()

	h.logger.Debug("Scenarios compared",
		zap.String("baseID", query.BaseID),
		zap.String("targetID", query.TargetID),
		zap.Bool("hasChanges", view.HasChanges),
	)
	return view, nil
}

func (h *CompareScenariosHandler) compareOptions(override *float64) []diff.Option {
	return compareOptions(h.cfg, override)
}

// CompareGraphLiveHandler diffs a captured scenario against the current
// live state of its graph. Results are never cached: the live side can
// change between any two requests.
type CompareGraphLiveHandler struct {
	scenarioRepo ports.ScenarioRepository
	graphRepo    ports.GraphRepository
	cfg          *config.DomainConfig
	logger       *zap.Logger
}

// NewCompareGraphLiveHandler creates a new handler instance.
func NewCompareGraphLiveHandler(
	scenarioRepo ports.ScenarioRepository,
	graphRepo ports.GraphRepository,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CompareGraphLiveHandler {
	return &CompareGraphLiveHandler{
		scenarioRepo: scenarioRepo,
		graphRepo:    graphRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// Handle executes the compare graph live query. The scenario is the
// "before" side; the live graph is the "after" side.
func (h *CompareGraphLiveHandler) Handle(ctx context.Context, query queries.CompareGraphLiveQuery) (*queries.ComparisonResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	graph, err := fetchOwnedGraph(ctx, h.graphRepo, query.GraphID, query.UserID)
	if err != nil {
		return nil, err
	}
	snap, err := fetchOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, query.ScenarioID, query.UserID)
	if err != nil {
		return nil, err
	}
	if !snap.GraphID().Equals(graph.ID()) {
		return nil, pkgerrors.ErrScenarioGraphMismatch
	}

	before, err := snap.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario snapshot: %w", err)
	}

	result := diff.Compare(before, graph.Snapshot(), compareOptions(h.cfg, query.Tolerance)...)

	view := comparisonView(result, query.IDsOnly)
	view.BaseChecksum = snap.Checksum()

	h.logger.Debug("Scenario compared against live graph",
		zap.String("graphID", query.GraphID),
		zap.String("scenarioID", query.ScenarioID),
		zap.Bool("hasChanges", view.HasChanges),
	)
	return view, nil
}

// ComparisonSummaryHandler serves count-only comparisons for scenario
// list badges.
type ComparisonSummaryHandler struct {
	scenarioRepo ports.ScenarioRepository
	graphRepo    ports.GraphRepository
	cfg          *config.DomainConfig
	logger       *zap.Logger
}

// NewComparisonSummaryHandler creates a new handler instance.
func NewComparisonSummaryHandler(
	scenarioRepo ports.ScenarioRepository,
	graphRepo ports.GraphRepository,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ComparisonSummaryHandler {
	return &ComparisonSummaryHandler{
		scenarioRepo: scenarioRepo,
		graphRepo:    graphRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// Handle executes the comparison summary query.
func (h *ComparisonSummaryHandler) Handle(ctx context.Context, query queries.ComparisonSummaryQuery) (*queries.ComparisonSummaryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	base, err := fetchOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, query.BaseID, query.UserID)
	if err != nil {
		return nil, err
	}
	target, err := fetchOwnedScenario(ctx, h.scenarioRepo, h.graphRepo, query.TargetID, query.UserID)
	if err != nil {
		return nil, err
	}
	if !base.GraphID().Equals(target.GraphID()) {
		return nil, pkgerrors.ErrScenarioGraphMismatch
	}

	// Equal checksums mean identical structure; skip the snapshot thaw.
	if base.Checksum() == target.Checksum() {
		return &queries.ComparisonSummaryResult{}, nil
	}

	baseSnap, err := base.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load base snapshot: %w", err)
	}
	targetSnap, err := target.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load target snapshot: %w", err)
	}

	summary := diff.Compare(baseSnap, targetSnap, compareOptions(h.cfg, nil)...).Summary()
	return &queries.ComparisonSummaryResult{
		NodesAdded:    summary.NodesAdded,
		NodesRemoved:  summary.NodesRemoved,
		NodesModified: summary.NodesModified,
		EdgesAdded:    summary.EdgesAdded,
		EdgesRemoved:  summary.EdgesRemoved,
		EdgesModified: summary.EdgesModified,
		HasChanges: summary.NodesAdded+summary.NodesRemoved+summary.NodesModified+
			summary.EdgesAdded+summary.EdgesRemoved+summary.EdgesModified > 0,
	}, nil
}

// compareOptions resolves the effective tolerance: a per-request
// override wins, otherwise the configured default applies.
func compareOptions(cfg *config.DomainConfig, override *float64) []diff.Option {
	tol := cfg.ComparisonTolerance
	if override != nil {
		tol = *override
	}
	if tol <= 0 {
		return nil
	}
	return []diff.Option{diff.WithTolerance(tol)}
}

// comparisonView maps a diff result onto the read model. With idsOnly
// set, before/after payloads are omitted and only ids are carried.
func comparisonView(r diff.Result, idsOnly bool) *queries.ComparisonResult {
	view := &queries.ComparisonResult{
		NodesAdded:     nodeChangeViews(r.NodesAdded, idsOnly),
		NodesRemoved:   nodeChangeViews(r.NodesRemoved, idsOnly),
		NodesModified:  nodeChangeViews(r.NodesModified, idsOnly),
		NodesUnchanged: nodeChangeIDs(r.NodesUnchanged),
		EdgesAdded:     edgeChangeViews(r.EdgesAdded, idsOnly),
		EdgesRemoved:   edgeChangeViews(r.EdgesRemoved, idsOnly),
		EdgesModified:  edgeChangeViews(r.EdgesModified, idsOnly),
		EdgesUnchanged: edgeChangeIDs(r.EdgesUnchanged),
		HasChanges:     r.HasChanges(),
	}
	return view
}

func nodeChangeViews(changes []diff.NodeChange, idsOnly bool) []queries.NodeChangeView {
	views := make([]queries.NodeChangeView, 0, len(changes))
	for _, c := range changes {
		view := queries.NodeChangeView{ID: c.ID}
		if !idsOnly {
			view.Before = optionalNodeView(c.Before)
			view.After = optionalNodeView(c.After)
		}
		views = append(views, view)
	}
	return views
}

func edgeChangeViews(changes []diff.EdgeChange, idsOnly bool) []queries.EdgeChangeView {
	views := make([]queries.EdgeChangeView, 0, len(changes))
	for _, c := range changes {
		view := queries.EdgeChangeView{ID: c.ID}
		if !idsOnly {
			view.Before = optionalEdgeView(c.Before)
			view.After = optionalEdgeView(c.After)
		}
		views = append(views, view)
	}
	return views
}

func nodeChangeIDs(changes []diff.NodeChange) []string {
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ID)
	}
	return ids
}

func edgeChangeIDs(changes []diff.EdgeChange) []string {
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ID)
	}
	return ids
}

func optionalNodeView(node *entities.Node) *queries.NodeView {
	if node == nil {
		return nil
	}
	view := nodeView(node)
	return &view
}

func optionalEdgeView(edge *entities.Edge) *queries.EdgeView {
	if edge == nil {
		return nil
	}
	view := edgeView(edge)
	return &view
}
