package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"causemap/application/queries"
	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	pkgerrors "causemap/pkg/errors"
)

func seedGraph(t *testing.T, repo *fakeGraphRepo, userID, name string) *aggregates.Graph {
	t.Helper()
	graph, err := aggregates.NewGraph(userID, name)
	require.NoError(t, err)
	graph.MarkEventsAsCommitted()
	require.NoError(t, repo.Save(context.Background(), graph))
	return graph
}

func addNode(t *testing.T, graph *aggregates.Graph, nodeType entities.NodeType, title string) *entities.Node {
	t.Helper()
	titleVO, err := valueobjects.NewTitle(title)
	require.NoError(t, err)
	node, err := entities.NewNode(nodeType, titleVO)
	require.NoError(t, err)
	require.NoError(t, graph.AddNode(node))
	return node
}

func connect(t *testing.T, graph *aggregates.Graph, from, to *entities.Node, kind entities.EdgeKind, weight *float64) *entities.Edge {
	t.Helper()
	edge, err := graph.ConnectNodes(from.ID(), to.ID(), kind, weight)
	require.NoError(t, err)
	return edge
}

func TestGetGraphHandler(t *testing.T) {
	repo := newFakeGraphRepo()
	graph := seedGraph(t, repo, "user-1", "Vendor decision")
	a := addNode(t, graph, entities.NodeTypeProblem, "Churn is rising")
	b := addNode(t, graph, entities.NodeTypeOption, "Discounts")
	c := addNode(t, graph, entities.NodeTypeOutcome, "Retention")
	connect(t, graph, a, b, entities.EdgeKindInforms, nil)
	connect(t, graph, b, c, entities.EdgeKindCauses, nil)

	h := NewGetGraphHandler(repo, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.GetGraphQuery{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Vendor decision", result.Name)
	assert.Len(t, result.Nodes, 3)
	assert.Len(t, result.Edges, 2)
	assert.Equal(t, 3, result.Stats.NodeCount)
	// 2 of 6 possible directed edges.
	assert.InDelta(t, 2.0/6.0, result.Stats.Density, 1e-12)

	// Views come back in a stable order.
	for i := 1; i < len(result.Nodes); i++ {
		assert.Less(t, result.Nodes[i-1].ID, result.Nodes[i].ID)
	}
}

func TestGetGraphHandler_WrongOwner(t *testing.T) {
	repo := newFakeGraphRepo()
	graph := seedGraph(t, repo, "user-1", "Private")

	h := NewGetGraphHandler(repo, zap.NewNop())
	_, err := h.Handle(context.Background(), queries.GetGraphQuery{
		UserID:  "user-2",
		GraphID: graph.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotAuthorized)
}

func TestGetGraphHandler_MalformedGraphID(t *testing.T) {
	h := NewGetGraphHandler(newFakeGraphRepo(), zap.NewNop())
	_, err := h.Handle(context.Background(), queries.GetGraphQuery{
		UserID:  "user-1",
		GraphID: "not-a-uuid",
	})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestListGraphsHandler(t *testing.T) {
	repo := newFakeGraphRepo()
	older := seedGraph(t, repo, "user-1", "Older")
	newer := seedGraph(t, repo, "user-1", "Newer")
	seedGraph(t, repo, "user-2", "Someone else's")

	h := NewListGraphsHandler(repo, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.ListGraphsQuery{UserID: "user-1"})
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	assert.Equal(t, newer.ID().String(), result.Graphs[0].ID)
	assert.Equal(t, older.ID().String(), result.Graphs[1].ID)
}

func TestListGraphsHandler_Empty(t *testing.T) {
	h := NewListGraphsHandler(newFakeGraphRepo(), zap.NewNop())
	result, err := h.Handle(context.Background(), queries.ListGraphsQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Graphs)
}

func TestGraphStats(t *testing.T) {
	assert.Equal(t, queries.GraphStats{}, graphStats(0, 0))

	single := graphStats(1, 0)
	assert.Zero(t, single.Density)

	full := graphStats(2, 2)
	assert.Equal(t, 1.0, full.Density)
}
