package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"causemap/application/queries"
	"causemap/domain/config"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

type compareFixture struct {
	graphRepo    *fakeGraphRepo
	scenarioRepo *fakeScenarioRepo
	cfg          *config.DomainConfig
}

func newCompareFixture() *compareFixture {
	return &compareFixture{
		graphRepo:    newFakeGraphRepo(),
		scenarioRepo: newFakeScenarioRepo(),
		cfg:          config.DefaultDomainConfig(),
	}
}

func TestCompareScenariosHandler(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Vendor decision")
	a := addNode(t, graph, entities.NodeTypeProblem, "Churn is rising")
	b := addNode(t, graph, entities.NodeTypeOption, "Discounts")
	edge := connect(t, graph, a, b, entities.EdgeKindInforms, nil)

	base, err := scenario.Capture(graph, "Before", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), base))

	// Mutate: retitle one node, add one node, drop the edge.
	title, err := valueobjects.NewTitle("Churn is accelerating")
	require.NoError(t, err)
	require.NoError(t, graph.UpdateNodeTitle(a.ID(), title))
	c := addNode(t, graph, entities.NodeTypeAction, "Run win-back campaign")
	require.NoError(t, graph.RemoveEdge(edge.ID()))

	target, err := scenario.Capture(graph, "After", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), target))

	h := NewCompareScenariosHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.CompareScenariosQuery{
		UserID:   "user-1",
		BaseID:   base.ID().String(),
		TargetID: target.ID().String(),
	})
	require.NoError(t, err)

	assert.True(t, result.HasChanges)
	assert.Equal(t, base.Checksum(), result.BaseChecksum)
	assert.Equal(t, target.Checksum(), result.TargetChecksum)

	require.Len(t, result.NodesAdded, 1)
	assert.Equal(t, c.ID().String(), result.NodesAdded[0].ID)
	require.Len(t, result.NodesModified, 1)
	assert.Equal(t, a.ID().String(), result.NodesModified[0].ID)
	assert.Equal(t, []string{b.ID().String()}, result.NodesUnchanged)
	assert.Empty(t, result.NodesRemoved)

	require.Len(t, result.EdgesRemoved, 1)
	assert.Equal(t, edge.ID().String(), result.EdgesRemoved[0].ID)

	// Full payloads are carried when ids_only is off.
	require.NotNil(t, result.NodesModified[0].Before)
	require.NotNil(t, result.NodesModified[0].After)
	assert.Equal(t, "Churn is rising", result.NodesModified[0].Before.Title)
	assert.Equal(t, "Churn is accelerating", result.NodesModified[0].After.Title)
	assert.Nil(t, result.NodesAdded[0].Before)
}

func TestCompareScenariosHandler_IDsOnly(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Map")
	a := addNode(t, graph, entities.NodeTypeProblem, "Churn")

	base, err := scenario.Capture(graph, "Before", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), base))

	title, err := valueobjects.NewTitle("Churn, quantified")
	require.NoError(t, err)
	require.NoError(t, graph.UpdateNodeTitle(a.ID(), title))

	target, err := scenario.Capture(graph, "After", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), target))

	h := NewCompareScenariosHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.CompareScenariosQuery{
		UserID:   "user-1",
		BaseID:   base.ID().String(),
		TargetID: target.ID().String(),
		IDsOnly:  true,
	})
	require.NoError(t, err)

	require.Len(t, result.NodesModified, 1)
	assert.Equal(t, a.ID().String(), result.NodesModified[0].ID)
	assert.Nil(t, result.NodesModified[0].Before)
	assert.Nil(t, result.NodesModified[0].After)
}

func TestCompareScenariosHandler_ToleranceOverride(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Map")
	a := addNode(t, graph, entities.NodeTypeProblem, "Churn")
	b := addNode(t, graph, entities.NodeTypeOption, "Discounts")
	w := 0.5
	edge := connect(t, graph, a, b, entities.EdgeKindInforms, &w)

	base, err := scenario.Capture(graph, "Before", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), base))

	drifted := 0.5 + 1e-9
	require.NoError(t, graph.UpdateEdgeWeight(edge.ID(), &drifted))

	target, err := scenario.Capture(graph, "After", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), target))

	h := NewCompareScenariosHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())

	// Default is exact equality: the drift reads as a modification.
	strict, err := h.Handle(context.Background(), queries.CompareScenariosQuery{
		UserID:   "user-1",
		BaseID:   base.ID().String(),
		TargetID: target.ID().String(),
	})
	require.NoError(t, err)
	assert.Len(t, strict.EdgesModified, 1)

	// A per-request tolerance absorbs it.
	tol := 1e-6
	loose, err := h.Handle(context.Background(), queries.CompareScenariosQuery{
		UserID:    "user-1",
		BaseID:    base.ID().String(),
		TargetID:  target.ID().String(),
		Tolerance: &tol,
	})
	require.NoError(t, err)
	assert.Empty(t, loose.EdgesModified)
	assert.False(t, loose.HasChanges)
}

func TestCompareScenariosHandler_GraphMismatch(t *testing.T) {
	f := newCompareFixture()
	graphA := seedGraph(t, f.graphRepo, "user-1", "Map A")
	graphB := seedGraph(t, f.graphRepo, "user-1", "Map B")

	baseA, err := scenario.Capture(graphA, "A", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), baseA))
	baseB, err := scenario.Capture(graphB, "B", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), baseB))

	h := NewCompareScenariosHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	_, err = h.Handle(context.Background(), queries.CompareScenariosQuery{
		UserID:   "user-1",
		BaseID:   baseA.ID().String(),
		TargetID: baseB.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrScenarioGraphMismatch)
}

func TestCompareScenariosHandler_WrongOwner(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Private")
	snap, err := scenario.Capture(graph, "Baseline", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), snap))

	h := NewCompareScenariosHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	_, err = h.Handle(context.Background(), queries.CompareScenariosQuery{
		UserID:   "user-2",
		BaseID:   snap.ID().String(),
		TargetID: snap.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotAuthorized)
}

func TestCompareGraphLiveHandler(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Map")
	addNode(t, graph, entities.NodeTypeProblem, "Churn")

	snap, err := scenario.Capture(graph, "Baseline", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), snap))

	// Live graph drifts after the capture.
	added := addNode(t, graph, entities.NodeTypeAction, "Interview churned users")

	h := NewCompareGraphLiveHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.CompareGraphLiveQuery{
		UserID:     "user-1",
		GraphID:    graph.ID().String(),
		ScenarioID: snap.ID().String(),
	})
	require.NoError(t, err)

	// The scenario is the before side: new live nodes read as added.
	require.Len(t, result.NodesAdded, 1)
	assert.Equal(t, added.ID().String(), result.NodesAdded[0].ID)
	assert.Equal(t, snap.Checksum(), result.BaseChecksum)
	assert.Empty(t, result.TargetChecksum)
}

func TestCompareGraphLiveHandler_ScenarioFromOtherGraph(t *testing.T) {
	f := newCompareFixture()
	graphA := seedGraph(t, f.graphRepo, "user-1", "Map A")
	graphB := seedGraph(t, f.graphRepo, "user-1", "Map B")

	snap, err := scenario.Capture(graphB, "Baseline", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), snap))

	h := NewCompareGraphLiveHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	_, err = h.Handle(context.Background(), queries.CompareGraphLiveQuery{
		UserID:     "user-1",
		GraphID:    graphA.ID().String(),
		ScenarioID: snap.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrScenarioGraphMismatch)
}

func TestComparisonSummaryHandler(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Map")
	a := addNode(t, graph, entities.NodeTypeProblem, "Churn")

	base, err := scenario.Capture(graph, "Before", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), base))

	title, err := valueobjects.NewTitle("Churn, quantified")
	require.NoError(t, err)
	require.NoError(t, graph.UpdateNodeTitle(a.ID(), title))
	addNode(t, graph, entities.NodeTypeOption, "Discounts")

	target, err := scenario.Capture(graph, "After", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), target))

	h := NewComparisonSummaryHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.ComparisonSummaryQuery{
		UserID:   "user-1",
		BaseID:   base.ID().String(),
		TargetID: target.ID().String(),
	})
	require.NoError(t, err)

	assert.True(t, result.HasChanges)
	assert.Equal(t, 1, result.NodesAdded)
	assert.Equal(t, 1, result.NodesModified)
	assert.Zero(t, result.NodesRemoved)
}

func TestComparisonSummaryHandler_EqualChecksumsShortCircuit(t *testing.T) {
	f := newCompareFixture()
	graph := seedGraph(t, f.graphRepo, "user-1", "Map")
	addNode(t, graph, entities.NodeTypeProblem, "Churn")

	base, err := scenario.Capture(graph, "First", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), base))
	target, err := scenario.Capture(graph, "Second", "names differ, structure does not", "user-1")
	require.NoError(t, err)
	require.NoError(t, f.scenarioRepo.Save(context.Background(), target))

	h := NewComparisonSummaryHandler(f.scenarioRepo, f.graphRepo, f.cfg, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.ComparisonSummaryQuery{
		UserID:   "user-1",
		BaseID:   base.ID().String(),
		TargetID: target.ID().String(),
	})
	require.NoError(t, err)
	assert.False(t, result.HasChanges)
	assert.Zero(t, result.NodesAdded+result.NodesRemoved+result.NodesModified)
}

func TestCompareScenariosQuery_CacheKeyDistinguishesOptions(t *testing.T) {
	base := queries.CompareScenariosQuery{UserID: "u1", BaseID: "s1", TargetID: "s2"}
	tol := 0.001
	withTol := queries.CompareScenariosQuery{UserID: "u1", BaseID: "s1", TargetID: "s2", Tolerance: &tol}
	idsOnly := queries.CompareScenariosQuery{UserID: "u1", BaseID: "s1", TargetID: "s2", IDsOnly: true}
	otherUser := queries.CompareScenariosQuery{UserID: "u2", BaseID: "s1", TargetID: "s2"}

	keys := map[string]bool{
		base.CacheKey():      true,
		withTol.CacheKey():   true,
		idsOnly.CacheKey():   true,
		otherUser.CacheKey(): true,
	}
	assert.Len(t, keys, 4)
}
