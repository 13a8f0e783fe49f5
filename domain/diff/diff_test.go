package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
)

func testNode(t *testing.T, id string, nodeType entities.NodeType, title string, opts ...func(*nodeSpec)) *entities.Node {
	t.Helper()
	spec := &nodeSpec{}
	for _, opt := range opts {
		opt(spec)
	}

	nid, err := valueobjects.NewNodeIDFromString(id)
	require.NoError(t, err)
	tv, err := valueobjects.NewTitle(title)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return entities.ReconstructNode(nid, nodeType, tv, spec.impacts, spec.rect, now, now, 1)
}

type nodeSpec struct {
	impacts []valueobjects.KRImpact
	rect    *valueobjects.ViewRect
}

func withImpacts(impacts ...valueobjects.KRImpact) func(*nodeSpec) {
	return func(s *nodeSpec) { s.impacts = impacts }
}

func withRect(x, y, w, h float64) func(*nodeSpec) {
	return func(s *nodeSpec) {
		s.rect = &valueobjects.ViewRect{X: x, Y: y, W: w, H: h}
	}
}

func testEdge(t *testing.T, id, from, to string, kind entities.EdgeKind, weight *float64) *entities.Edge {
	t.Helper()
	eid, err := valueobjects.NewEdgeIDFromString(id)
	require.NoError(t, err)
	fid, err := valueobjects.NewNodeIDFromString(from)
	require.NoError(t, err)
	tid, err := valueobjects.NewNodeIDFromString(to)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return entities.ReconstructEdge(eid, fid, tid, kind, weight, now, now, 1)
}

func impact(krID string, delta, confidence float64) valueobjects.KRImpact {
	return valueobjects.KRImpact{KRID: krID, DeltaP50: delta, Confidence: confidence}
}

func weight(w float64) *float64 { return &w }

func TestCompare_IdenticalSnapshots(t *testing.T) {
	snap := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Grow revenue",
				withImpacts(impact("kr-1", 0.2, 0.8))),
			"n2": testNode(t, "n2", entities.NodeTypeRisk, "Churn spike"),
		},
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n2", "n1", entities.EdgeKindBlocks, weight(0.4)),
		},
	}

	r := Compare(snap, snap)

	assert.False(t, r.HasChanges())
	assert.Empty(t, r.NodesAdded)
	assert.Empty(t, r.NodesRemoved)
	assert.Empty(t, r.NodesModified)
	assert.Len(t, r.NodesUnchanged, 2)
	assert.Empty(t, r.EdgesAdded)
	assert.Empty(t, r.EdgesRemoved)
	assert.Empty(t, r.EdgesModified)
	assert.Len(t, r.EdgesUnchanged, 1)
}

func TestCompare_EmptySnapshots(t *testing.T) {
	r := Compare(Snapshot{}, Snapshot{})

	assert.False(t, r.HasChanges())
	assert.Empty(t, r.NodesUnchanged)
	assert.Empty(t, r.EdgesUnchanged)
}

func TestCompare_AddRemoveSymmetry(t *testing.T) {
	a := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeProblem, "Slow onboarding"),
			"n2": testNode(t, "n2", entities.NodeTypeOption, "Self-serve signup"),
		},
	}
	b := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeProblem, "Slow onboarding"),
			"n3": testNode(t, "n3", entities.NodeTypeAction, "Ship wizard"),
		},
	}

	forward := Compare(a, b)
	backward := Compare(b, a)

	require.Len(t, forward.NodesAdded, 1)
	require.Len(t, forward.NodesRemoved, 1)
	assert.Equal(t, "n3", forward.NodesAdded[0].ID)
	assert.Equal(t, "n2", forward.NodesRemoved[0].ID)

	// Swapping the arguments swaps the buckets.
	require.Len(t, backward.NodesAdded, 1)
	require.Len(t, backward.NodesRemoved, 1)
	assert.Equal(t, "n2", backward.NodesAdded[0].ID)
	assert.Equal(t, "n3", backward.NodesRemoved[0].ID)
}

func TestCompare_PartitionCompleteness(t *testing.T) {
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal"),
			"n2": testNode(t, "n2", entities.NodeTypeRisk, "Risk"),
			"n4": testNode(t, "n4", entities.NodeTypeFactor, "Factor"),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal"),
			"n3": testNode(t, "n3", entities.NodeTypeOption, "Option"),
			"n4": testNode(t, "n4", entities.NodeTypeFactor, "Factor renamed"),
		},
	}

	r := Compare(before, after)

	seen := map[string]int{}
	for _, c := range r.NodesAdded {
		seen[c.ID]++
	}
	for _, c := range r.NodesRemoved {
		seen[c.ID]++
	}
	for _, c := range r.NodesModified {
		seen[c.ID]++
	}
	for _, c := range r.NodesUnchanged {
		seen[c.ID]++
	}

	// Every id from either side lands in exactly one bucket.
	assert.Equal(t, map[string]int{"n1": 1, "n2": 1, "n3": 1, "n4": 1}, seen)
}

func TestCompare_ViewRectIgnored(t *testing.T) {
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeDecision, "Pick vendor",
				withRect(0, 0, 120, 60)),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeDecision, "Pick vendor",
				withRect(900, -250, 180, 90)),
		},
	}

	r := Compare(before, after)

	assert.Empty(t, r.NodesModified)
	require.Len(t, r.NodesUnchanged, 1)
	assert.Equal(t, "n1", r.NodesUnchanged[0].ID)
}

func TestCompare_NodeFieldChanges(t *testing.T) {
	tests := []struct {
		name  string
		after *entities.Node
	}{
		{
			name:  "title change",
			after: testNode(t, "n1", entities.NodeTypeOption, "Buy instead"),
		},
		{
			name:  "type change",
			after: testNode(t, "n1", entities.NodeTypeAction, "Build in-house"),
		},
		{
			name: "impacts change",
			after: testNode(t, "n1", entities.NodeTypeOption, "Build in-house",
				withImpacts(impact("kr-1", 0.3, 0.7))),
		},
	}

	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeOption, "Build in-house"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := Snapshot{Nodes: map[string]*entities.Node{"n1": tt.after}}

			r := Compare(before, after)

			require.Len(t, r.NodesModified, 1)
			assert.Equal(t, "n1", r.NodesModified[0].ID)
			assert.Empty(t, r.NodesUnchanged)
		})
	}
}

func TestCompare_ImpactOrderIsSignificant(t *testing.T) {
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal",
				withImpacts(impact("kr-1", 0.1, 0.5), impact("kr-2", 0.2, 0.6))),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal",
				withImpacts(impact("kr-2", 0.2, 0.6), impact("kr-1", 0.1, 0.5))),
		},
	}

	r := Compare(before, after)

	require.Len(t, r.NodesModified, 1)
}

func TestCompare_EdgeEndpointChangeIsModification(t *testing.T) {
	nodes := map[string]*entities.Node{
		"n1": testNode(t, "n1", entities.NodeTypeFactor, "Latency"),
		"n2": testNode(t, "n2", entities.NodeTypeOutcome, "Users leave"),
		"n3": testNode(t, "n3", entities.NodeTypeOutcome, "Support load"),
	}
	before := Snapshot{
		Nodes: nodes,
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, nil),
		},
	}
	after := Snapshot{
		Nodes: nodes,
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n3", entities.EdgeKindCauses, nil),
		},
	}

	r := Compare(before, after)

	require.Len(t, r.EdgesModified, 1)
	assert.Equal(t, "e1", r.EdgesModified[0].ID)
	assert.Empty(t, r.EdgesAdded)
	assert.Empty(t, r.EdgesRemoved)
}

func TestCompare_EdgeKindAndWeightChanges(t *testing.T) {
	tests := []struct {
		name  string
		after *entities.Edge
	}{
		{"kind change", testEdge(t, "e1", "n1", "n2", entities.EdgeKindSupports, weight(0.5))},
		{"weight change", testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, weight(0.9))},
		{"weight cleared", testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, nil)},
	}

	before := Snapshot{
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, weight(0.5)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := Snapshot{Edges: map[string]*entities.Edge{"e1": tt.after}}

			r := Compare(before, after)

			require.Len(t, r.EdgesModified, 1)
		})
	}
}

func TestCompare_RecreatedUnderNewIDIsNotModified(t *testing.T) {
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeOption, "Option A"),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n9": testNode(t, "n9", entities.NodeTypeOption, "Option A"),
		},
	}

	r := Compare(before, after)

	assert.Empty(t, r.NodesModified)
	require.Len(t, r.NodesRemoved, 1)
	require.Len(t, r.NodesAdded, 1)
	assert.Equal(t, "n1", r.NodesRemoved[0].ID)
	assert.Equal(t, "n9", r.NodesAdded[0].ID)
}

func TestCompare_Tolerance(t *testing.T) {
	before := Snapshot{
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, weight(0.5)),
		},
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal",
				withImpacts(impact("kr-1", 0.200000001, 0.8))),
		},
	}
	after := Snapshot{
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, weight(0.500000002)),
		},
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal",
				withImpacts(impact("kr-1", 0.2, 0.8))),
		},
	}

	// Strict by default: the drift counts as a change.
	strict := Compare(before, after)
	assert.Len(t, strict.EdgesModified, 1)
	assert.Len(t, strict.NodesModified, 1)

	// With tolerance the drift is absorbed.
	loose := Compare(before, after, WithTolerance(1e-6))
	assert.Empty(t, loose.EdgesModified)
	assert.Empty(t, loose.NodesModified)
	assert.Len(t, loose.EdgesUnchanged, 1)
	assert.Len(t, loose.NodesUnchanged, 1)
}

func TestCompare_MixedScenario(t *testing.T) {
	shared := testNode(t, "n4", entities.NodeTypeFactor, "Budget")
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeProblem, "Old title"),
			"n2": testNode(t, "n2", entities.NodeTypeRisk, "Vendor lock-in"),
			"n4": shared,
		},
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n2", entities.EdgeKindCauses, nil),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeProblem, "New title"),
			"n3": testNode(t, "n3", entities.NodeTypeAction, "Negotiate exit clause"),
			"n4": shared,
		},
		Edges: map[string]*entities.Edge{
			"e1": testEdge(t, "e1", "n1", "n3", entities.EdgeKindCauses, nil),
		},
	}

	r := Compare(before, after)

	require.Len(t, r.NodesModified, 1)
	assert.Equal(t, "n1", r.NodesModified[0].ID)
	require.Len(t, r.NodesRemoved, 1)
	assert.Equal(t, "n2", r.NodesRemoved[0].ID)
	require.Len(t, r.NodesAdded, 1)
	assert.Equal(t, "n3", r.NodesAdded[0].ID)
	require.Len(t, r.NodesUnchanged, 1)
	assert.Equal(t, "n4", r.NodesUnchanged[0].ID)

	require.Len(t, r.EdgesModified, 1)
	assert.Equal(t, "e1", r.EdgesModified[0].ID)
}

func TestCompare_DoesNotMutateInputs(t *testing.T) {
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeGoal, "Goal"),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n2": testNode(t, "n2", entities.NodeTypeRisk, "Risk"),
		},
	}

	Compare(before, after)

	assert.Len(t, before.Nodes, 1)
	assert.Len(t, after.Nodes, 1)
	assert.Contains(t, before.Nodes, "n1")
	assert.Contains(t, after.Nodes, "n2")
}

func TestCompare_DeterministicOrdering(t *testing.T) {
	nodes := map[string]*entities.Node{}
	for _, id := range []string{"n3", "n1", "n5", "n2", "n4"} {
		nodes[id] = testNode(t, id, entities.NodeTypeFactor, "Factor "+id)
	}

	r := Compare(Snapshot{Nodes: nodes}, Snapshot{})

	ids := make([]string, 0, len(r.NodesRemoved))
	for _, c := range r.NodesRemoved {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"n1", "n2", "n3", "n4", "n5"}, ids)
}

func TestDelta(t *testing.T) {
	before := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeProblem, "Old title"),
			"n2": testNode(t, "n2", entities.NodeTypeRisk, "Risk"),
		},
	}
	after := Snapshot{
		Nodes: map[string]*entities.Node{
			"n1": testNode(t, "n1", entities.NodeTypeProblem, "New title"),
			"n3": testNode(t, "n3", entities.NodeTypeAction, "Action"),
		},
	}

	d := Delta(before, after)

	assert.Equal(t, []string{"n3"}, d.NodesAdded)
	assert.Equal(t, []string{"n2"}, d.NodesRemoved)
	assert.Equal(t, []string{"n1"}, d.NodesChanged)
	assert.False(t, d.IsEmpty())

	assert.True(t, Delta(after, after).IsEmpty())
}
