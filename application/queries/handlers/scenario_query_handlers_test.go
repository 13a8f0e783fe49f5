package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"causemap/application/queries"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

func reconstructScenario(t *testing.T, graphID, name string, createdAt time.Time) *scenario.Scenario {
	t.Helper()
	gid, err := valueobjects.NewGraphIDFromString(graphID)
	require.NoError(t, err)
	return scenario.Reconstruct(
		valueobjects.NewScenarioID(),
		gid,
		name, "",
		nil, nil,
		scenario.CurrentSchemaVersion,
		"checksum-"+name,
		createdAt,
		"user-1",
	)
}

func TestGetScenarioHandler(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	graph := seedGraph(t, graphRepo, "user-1", "Vendor decision")
	n := addNode(t, graph, entities.NodeTypeProblem, "Churn is rising")

	snap, err := scenario.Capture(graph, "Baseline", "Before the pilot", "user-1")
	require.NoError(t, err)
	require.NoError(t, scenarioRepo.Save(context.Background(), snap))

	h := NewGetScenarioHandler(scenarioRepo, graphRepo, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.GetScenarioQuery{
		UserID:     "user-1",
		ScenarioID: snap.ID().String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Baseline", result.Name)
	assert.Equal(t, "Before the pilot", result.Description)
	assert.Equal(t, graph.ID().String(), result.GraphID)
	assert.Equal(t, snap.Checksum(), result.Checksum)
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, n.ID().String(), result.Nodes[0].ID)
	assert.Equal(t, "Problem", result.Nodes[0].Type)
}

func TestGetScenarioHandler_WrongOwner(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	graph := seedGraph(t, graphRepo, "user-1", "Private")

	snap, err := scenario.Capture(graph, "Baseline", "", "user-1")
	require.NoError(t, err)
	require.NoError(t, scenarioRepo.Save(context.Background(), snap))

	h := NewGetScenarioHandler(scenarioRepo, graphRepo, zap.NewNop())
	_, err = h.Handle(context.Background(), queries.GetScenarioQuery{
		UserID:     "user-2",
		ScenarioID: snap.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotAuthorized)
}

func TestGetScenarioHandler_NotFound(t *testing.T) {
	h := NewGetScenarioHandler(newFakeScenarioRepo(), newFakeGraphRepo(), zap.NewNop())
	_, err := h.Handle(context.Background(), queries.GetScenarioQuery{
		UserID:     "user-1",
		ScenarioID: "5f64f5a2-3a64-4f4e-9c3d-6f5f2b1a9e10",
	})
	assert.ErrorIs(t, err, pkgerrors.ErrScenarioNotFound)
}

func TestListScenariosHandler_NewestFirst(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"First", "Second", "Third"} {
		snap := reconstructScenario(t, graph.ID().String(), name, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, scenarioRepo.Save(context.Background(), snap))
	}

	h := NewListScenariosHandler(scenarioRepo, graphRepo, zap.NewNop())
	result, err := h.Handle(context.Background(), queries.ListScenariosQuery{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
	})
	require.NoError(t, err)

	require.Equal(t, 3, result.Total)
	assert.Equal(t, "Third", result.Scenarios[0].Name)
	assert.Equal(t, "Second", result.Scenarios[1].Name)
	assert.Equal(t, "First", result.Scenarios[2].Name)
}

func TestListScenariosHandler_OwnershipFollowsGraph(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	h := NewListScenariosHandler(newFakeScenarioRepo(), graphRepo, zap.NewNop())
	_, err := h.Handle(context.Background(), queries.ListScenariosQuery{
		UserID:  "user-2",
		GraphID: graph.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotAuthorized)
}
