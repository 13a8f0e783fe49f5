package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/diff"
)

func buildGraph(t *testing.T) (*aggregates.Graph, *entities.Node, *entities.Node, *entities.Edge) {
	t.Helper()
	g, err := aggregates.NewGraph("user-1", "Vendor decision")
	require.NoError(t, err)

	a := addNode(t, g, entities.NodeTypeProblem, "Vendor lock-in")
	b := addNode(t, g, entities.NodeTypeOption, "Negotiate exit clause")

	w := 0.6
	edge, err := g.ConnectNodes(a.ID(), b.ID(), entities.EdgeKindInforms, &w)
	require.NoError(t, err)
	return g, a, b, edge
}

func addNode(t *testing.T, g *aggregates.Graph, nodeType entities.NodeType, title string) *entities.Node {
	t.Helper()
	tv, err := valueobjects.NewTitle(title)
	require.NoError(t, err)
	node, err := entities.NewNode(nodeType, tv)
	require.NoError(t, err)
	require.NoError(t, g.AddNode(node))
	return node
}

func TestCapture(t *testing.T) {
	g, _, _, _ := buildGraph(t)

	snap, err := Capture(g, "Baseline", "Before the Q3 push", "user-1")
	require.NoError(t, err)

	assert.False(t, snap.ID().IsZero())
	assert.True(t, snap.GraphID().Equals(g.ID()))
	assert.Equal(t, "Baseline", snap.Name())
	assert.Equal(t, "Before the Q3 push", snap.Description())
	assert.Equal(t, "user-1", snap.CreatedBy())
	assert.Equal(t, CurrentSchemaVersion, snap.SchemaVersion())
	assert.Len(t, snap.Checksum(), 64)
	assert.Equal(t, 2, snap.NodeCount())
	assert.Equal(t, 1, snap.EdgeCount())
}

func TestCapture_Validation(t *testing.T) {
	g, _, _, _ := buildGraph(t)

	_, err := Capture(nil, "Baseline", "", "user-1")
	assert.Error(t, err)

	_, err = Capture(g, "", "", "user-1")
	assert.Error(t, err)
}

func TestCapture_RecordsSortedByID(t *testing.T) {
	g, err := aggregates.NewGraph("user-1", "Many nodes")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		addNode(t, g, entities.NodeTypeFactor, "Factor")
	}

	snap, err := Capture(g, "Sorted", "", "user-1")
	require.NoError(t, err)

	nodes := snap.Nodes()
	for i := 1; i < len(nodes); i++ {
		assert.Less(t, nodes[i-1].ID, nodes[i].ID)
	}
}

func TestCapture_ChecksumDeterministic(t *testing.T) {
	g, _, _, _ := buildGraph(t)

	first, err := Capture(g, "One", "", "user-1")
	require.NoError(t, err)
	second, err := Capture(g, "Two", "different description", "user-2")
	require.NoError(t, err)

	// Name, description, and author are metadata; the checksum covers
	// structure only.
	assert.Equal(t, first.Checksum(), second.Checksum())
}

func TestCapture_ChecksumIgnoresViewRects(t *testing.T) {
	g, a, _, _ := buildGraph(t)

	before, err := Capture(g, "Before move", "", "user-1")
	require.NoError(t, err)

	rect, err := valueobjects.NewViewRect(500, -120, 180, 90)
	require.NoError(t, err)
	require.NoError(t, g.MoveNode(a.ID(), rect))

	after, err := Capture(g, "After move", "", "user-1")
	require.NoError(t, err)

	assert.Equal(t, before.Checksum(), after.Checksum())
}

func TestCapture_ChecksumTracksStructure(t *testing.T) {
	g, a, _, _ := buildGraph(t)

	before, err := Capture(g, "Before", "", "user-1")
	require.NoError(t, err)

	title, err := valueobjects.NewTitle("Renamed problem")
	require.NoError(t, err)
	require.NoError(t, g.UpdateNodeTitle(a.ID(), title))

	after, err := Capture(g, "After", "", "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, before.Checksum(), after.Checksum())
}

func TestScenario_SnapshotRoundTrip(t *testing.T) {
	g, a, b, edge := buildGraph(t)

	impacts := []valueobjects.KRImpact{{KRID: "kr-1", DeltaP50: 0.2, Confidence: 0.8}}
	require.NoError(t, g.SetNodeImpacts(a.ID(), impacts))

	snap, err := Capture(g, "Round trip", "", "user-1")
	require.NoError(t, err)

	thawed, err := snap.Snapshot()
	require.NoError(t, err)

	require.Len(t, thawed.Nodes, 2)
	require.Len(t, thawed.Edges, 1)

	frozen := thawed.Nodes[a.ID().String()]
	require.NotNil(t, frozen)
	assert.Equal(t, entities.NodeTypeProblem, frozen.Type())
	assert.Equal(t, impacts, frozen.KRImpacts())

	frozenEdge := thawed.Edges[edge.ID().String()]
	require.NotNil(t, frozenEdge)
	assert.True(t, frozenEdge.From().Equals(a.ID()))
	assert.True(t, frozenEdge.To().Equals(b.ID()))
	require.NotNil(t, frozenEdge.Weight())
	assert.Equal(t, 0.6, *frozenEdge.Weight())

	// A scenario compared against the unchanged live graph is clean.
	r := diff.Compare(thawed, g.Snapshot())
	assert.False(t, r.HasChanges())
}

func TestScenario_SnapshotRejectsCorruptRecords(t *testing.T) {
	snap := Reconstruct(
		valueobjects.NewScenarioID(),
		valueobjects.NewGraphID(),
		"Corrupt", "",
		[]NodeRecord{{ID: "n1", Type: "NotAType", Title: "Bad"}},
		nil,
		CurrentSchemaVersion,
		"deadbeef",
		time.Now(),
		"user-1",
	)

	_, err := snap.Snapshot()
	assert.Error(t, err)
}

func TestScenario_ImmutableAccessors(t *testing.T) {
	g, _, _, _ := buildGraph(t)
	snap, err := Capture(g, "Immutable", "", "user-1")
	require.NoError(t, err)

	snap.Nodes()[0].Title = "mutated"
	snap.Edges()[0].Kind = "mutated"

	assert.NotEqual(t, "mutated", snap.Nodes()[0].Title)
	assert.NotEqual(t, "mutated", snap.Edges()[0].Kind)
}

func TestRetentionPolicy_ShouldPrune(t *testing.T) {
	policy := RetentionPolicy{MaxScenarios: 3, RetentionPeriod: 30 * 24 * time.Hour}
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	fresh := now.Add(-24 * time.Hour)
	stale := now.Add(-31 * 24 * time.Hour)

	assert.False(t, policy.ShouldPrune(fresh, 3, now))
	assert.True(t, policy.ShouldPrune(fresh, 4, now))
	assert.True(t, policy.ShouldPrune(stale, 1, now))
}

func TestRetentionPolicy_ZeroDisables(t *testing.T) {
	now := time.Now()
	old := now.Add(-10 * 365 * 24 * time.Hour)

	unlimited := RetentionPolicy{}
	assert.False(t, unlimited.ShouldPrune(old, 1_000_000, now))

	countOnly := RetentionPolicy{MaxScenarios: 5}
	assert.False(t, countOnly.ShouldPrune(old, 5, now))
	assert.True(t, countOnly.ShouldPrune(old, 6, now))
}

func TestDefaultRetentionPolicy(t *testing.T) {
	policy := DefaultRetentionPolicy()
	assert.Equal(t, 100, policy.MaxScenarios)
	assert.Equal(t, 365*24*time.Hour, policy.RetentionPeriod)
}
