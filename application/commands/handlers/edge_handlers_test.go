package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/diff"
	pkgerrors "causemap/pkg/errors"
)

func connectVia(t *testing.T, repo *fakeGraphRepo, graph *aggregates.Graph, userID string, from, to *entities.Node, kind string, weight *float64) *entities.Edge {
	t.Helper()
	h := NewConnectNodesHandler(repo, &fakeEventStore{}, nil, zap.NewNop())
	edge, err := h.Handle(context.Background(), commands.ConnectNodesCommand{
		UserID:  userID,
		GraphID: graph.ID().String(),
		FromID:  from.ID().String(),
		ToID:    to.ID().String(),
		Kind:    kind,
		Weight:  weight,
	})
	require.NoError(t, err)
	return edge
}

func TestConnectNodesHandler(t *testing.T) {
	repo := newFakeGraphRepo()
	store := &fakeEventStore{}
	notifier := &fakeNotifier{}
	graph := seedGraph(t, repo, "user-1", "Vendor decision")
	a := addNodeVia(t, repo, graph, "user-1", "Factor", "Latency")
	b := addNodeVia(t, repo, graph, "user-1", "Outcome", "Users leave")
	h := NewConnectNodesHandler(repo, store, notifier, zap.NewNop())

	w := 0.7
	edge, err := h.Handle(context.Background(), commands.ConnectNodesCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		FromID:  a.ID().String(),
		ToID:    b.ID().String(),
		Kind:    "causes",
		Weight:  &w,
	})
	require.NoError(t, err)

	assert.Equal(t, entities.EdgeKindCauses, edge.Kind())
	require.NotNil(t, edge.Weight())
	assert.Equal(t, 0.7, *edge.Weight())

	stored, err := repo.GetByID(context.Background(), graph.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EdgeCount())
	assert.Equal(t, []string{"graph.edge_connected"}, store.eventTypes())

	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, "user-1", notifier.userIDs[0])
	delta := notifier.payloads[0].(diff.DeltaResult)
	assert.Equal(t, []string{edge.ID().String()}, delta.EdgesAdded)
	assert.Empty(t, delta.EdgesChanged)
}

func TestConnectNodesHandler_SelfEdgeRejected(t *testing.T) {
	repo := newFakeGraphRepo()
	graph := seedGraph(t, repo, "user-1", "Map")
	node := addNodeVia(t, repo, graph, "user-1", "Factor", "Feedback loop")
	h := NewConnectNodesHandler(repo, &fakeEventStore{}, nil, zap.NewNop())

	_, err := h.Handle(context.Background(), commands.ConnectNodesCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		FromID:  node.ID().String(),
		ToID:    node.ID().String(),
		Kind:    "supports",
	})
	assert.ErrorIs(t, err, pkgerrors.ErrSelfReferentialEdge)
}

func TestConnectNodesHandler_WrongOwner(t *testing.T) {
	repo := newFakeGraphRepo()
	graph := seedGraph(t, repo, "user-1", "Map")
	a := addNodeVia(t, repo, graph, "user-1", "Problem", "Churn")
	b := addNodeVia(t, repo, graph, "user-1", "Option", "Discounts")
	h := NewConnectNodesHandler(repo, &fakeEventStore{}, nil, zap.NewNop())

	_, err := h.Handle(context.Background(), commands.ConnectNodesCommand{
		UserID:  "user-2",
		GraphID: graph.ID().String(),
		FromID:  a.ID().String(),
		ToID:    b.ID().String(),
		Kind:    "informs",
	})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotAuthorized)
}

func TestUpdateEdgeHandler_RetargetNotifiesModification(t *testing.T) {
	repo := newFakeGraphRepo()
	notifier := &fakeNotifier{}
	graph := seedGraph(t, repo, "user-1", "Map")
	a := addNodeVia(t, repo, graph, "user-1", "Factor", "Latency")
	b := addNodeVia(t, repo, graph, "user-1", "Outcome", "Users leave")
	c := addNodeVia(t, repo, graph, "user-1", "Outcome", "Support load")
	edge := connectVia(t, repo, graph, "user-1", a, b, "causes", nil)
	h := NewUpdateEdgeHandler(repo, &fakeEventStore{}, notifier, zap.NewNop())

	fromID := a.ID().String()
	toID := c.ID().String()
	err := h.Handle(context.Background(), commands.UpdateEdgeCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		EdgeID:  edge.ID().String(),
		FromID:  &fromID,
		ToID:    &toID,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), graph.ID())
	require.NoError(t, err)
	moved, err := stored.GetEdge(edge.ID())
	require.NoError(t, err)
	assert.True(t, moved.To().Equals(c.ID()))

	// An endpoint change keeps the edge's identity: one modification,
	// never a removal plus an addition.
	require.Len(t, notifier.payloads, 1)
	delta := notifier.payloads[0].(diff.DeltaResult)
	assert.Equal(t, []string{edge.ID().String()}, delta.EdgesChanged)
	assert.Empty(t, delta.EdgesAdded)
	assert.Empty(t, delta.EdgesRemoved)
}

func TestUpdateEdgeHandler_KindChangeNotifies(t *testing.T) {
	repo := newFakeGraphRepo()
	notifier := &fakeNotifier{}
	graph := seedGraph(t, repo, "user-1", "Map")
	a := addNodeVia(t, repo, graph, "user-1", "Risk", "Vendor lock-in")
	b := addNodeVia(t, repo, graph, "user-1", "Goal", "Ship on time")
	edge := connectVia(t, repo, graph, "user-1", a, b, "blocks", nil)
	h := NewUpdateEdgeHandler(repo, &fakeEventStore{}, notifier, zap.NewNop())

	kind := "informs"
	err := h.Handle(context.Background(), commands.UpdateEdgeCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		EdgeID:  edge.ID().String(),
		Kind:    &kind,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), graph.ID())
	require.NoError(t, err)
	updated, err := stored.GetEdge(edge.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.EdgeKindInforms, updated.Kind())

	require.Len(t, notifier.payloads, 1)
	delta := notifier.payloads[0].(diff.DeltaResult)
	assert.Equal(t, []string{edge.ID().String()}, delta.EdgesChanged)
}

func TestUpdateEdgeHandler_WeightChangeNotifies(t *testing.T) {
	repo := newFakeGraphRepo()
	notifier := &fakeNotifier{}
	graph := seedGraph(t, repo, "user-1", "Map")
	a := addNodeVia(t, repo, graph, "user-1", "Factor", "Latency")
	b := addNodeVia(t, repo, graph, "user-1", "Outcome", "Users leave")
	w := 0.4
	edge := connectVia(t, repo, graph, "user-1", a, b, "causes", &w)
	h := NewUpdateEdgeHandler(repo, &fakeEventStore{}, notifier, zap.NewNop())

	newWeight := 0.9
	err := h.Handle(context.Background(), commands.UpdateEdgeCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		EdgeID:  edge.ID().String(),
		Weight:  &newWeight,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), graph.ID())
	require.NoError(t, err)
	updated, err := stored.GetEdge(edge.ID())
	require.NoError(t, err)
	require.NotNil(t, updated.Weight())
	assert.Equal(t, 0.9, *updated.Weight())

	require.Len(t, notifier.payloads, 1)
	delta := notifier.payloads[0].(diff.DeltaResult)
	assert.Equal(t, []string{edge.ID().String()}, delta.EdgesChanged)
}

func TestUpdateEdgeHandler_ClearWeightNotifies(t *testing.T) {
	repo := newFakeGraphRepo()
	notifier := &fakeNotifier{}
	graph := seedGraph(t, repo, "user-1", "Map")
	a := addNodeVia(t, repo, graph, "user-1", "Factor", "Latency")
	b := addNodeVia(t, repo, graph, "user-1", "Outcome", "Users leave")
	w := 0.4
	edge := connectVia(t, repo, graph, "user-1", a, b, "causes", &w)
	h := NewUpdateEdgeHandler(repo, &fakeEventStore{}, notifier, zap.NewNop())

	err := h.Handle(context.Background(), commands.UpdateEdgeCommand{
		UserID:      "user-1",
		GraphID:     graph.ID().String(),
		EdgeID:      edge.ID().String(),
		ClearWeight: true,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), graph.ID())
	require.NoError(t, err)
	updated, err := stored.GetEdge(edge.ID())
	require.NoError(t, err)
	assert.Nil(t, updated.Weight())

	require.Len(t, notifier.payloads, 1)
	delta := notifier.payloads[0].(diff.DeltaResult)
	assert.Equal(t, []string{edge.ID().String()}, delta.EdgesChanged)
}

func TestUpdateEdgeHandler_EdgeMissing(t *testing.T) {
	repo := newFakeGraphRepo()
	graph := seedGraph(t, repo, "user-1", "Map")
	h := NewUpdateEdgeHandler(repo, &fakeEventStore{}, nil, zap.NewNop())

	kind := "supports"
	err := h.Handle(context.Background(), commands.UpdateEdgeCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		EdgeID:  valueobjects.NewEdgeID().String(),
		Kind:    &kind,
	})
	assert.ErrorIs(t, err, pkgerrors.ErrEdgeNotFound)
}

func TestUpdateEdgeHandler_NoFieldsRejected(t *testing.T) {
	repo := newFakeGraphRepo()
	graph := seedGraph(t, repo, "user-1", "Map")
	h := NewUpdateEdgeHandler(repo, &fakeEventStore{}, nil, zap.NewNop())

	err := h.Handle(context.Background(), commands.UpdateEdgeCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		EdgeID:  valueobjects.NewEdgeID().String(),
	})
	assert.Error(t, err)
}

func TestDeleteEdgeHandler(t *testing.T) {
	repo := newFakeGraphRepo()
	store := &fakeEventStore{}
	notifier := &fakeNotifier{}
	graph := seedGraph(t, repo, "user-1", "Map")
	a := addNodeVia(t, repo, graph, "user-1", "Problem", "Churn")
	b := addNodeVia(t, repo, graph, "user-1", "Option", "Discounts")
	edge := connectVia(t, repo, graph, "user-1", a, b, "informs", nil)
	h := NewDeleteEdgeHandler(repo, store, notifier, zap.NewNop())

	err := h.Handle(context.Background(), commands.DeleteEdgeCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		EdgeID:  edge.ID().String(),
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), graph.ID())
	require.NoError(t, err)
	assert.Zero(t, stored.EdgeCount())
	assert.Equal(t, 2, stored.NodeCount())
	assert.Equal(t, []string{"graph.edge_removed"}, store.eventTypes())

	require.Len(t, notifier.payloads, 1)
	delta := notifier.payloads[0].(diff.DeltaResult)
	assert.Equal(t, []string{edge.ID().String()}, delta.EdgesRemoved)
	assert.Empty(t, delta.EdgesChanged)
}
