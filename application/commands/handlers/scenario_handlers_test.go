package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

func defaultRetention() scenario.RetentionPolicy {
	return scenario.DefaultRetentionPolicy()
}

func TestCaptureScenarioHandler(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	store := &fakeEventStore{}
	lock := newFakeLock()
	graph := seedGraph(t, graphRepo, "user-1", "Vendor decision")
	addNodeVia(t, graphRepo, graph, "user-1", "Problem", "Churn")

	h := NewCaptureScenarioHandler(graphRepo, scenarioRepo, store, lock, defaultRetention(), zap.NewNop())
	snap, err := h.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID:      "user-1",
		GraphID:     graph.ID().String(),
		Name:        "Baseline",
		Description: "Before the pilot",
	})
	require.NoError(t, err)

	assert.Equal(t, "Baseline", snap.Name())
	assert.Equal(t, 1, snap.NodeCount())
	assert.Len(t, snap.Checksum(), 64)
	assert.Contains(t, scenarioRepo.scenarios, snap.ID().String())
	assert.Contains(t, store.eventTypes(), "scenario.captured")

	// The per-graph lock is taken and given back.
	assert.Equal(t, 1, lock.acquires)
	assert.Equal(t, 1, lock.releases)
	assert.Empty(t, lock.held)
}

func TestCaptureScenarioHandler_LockHeld(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	lock := newFakeLock()
	lock.failNext = true
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	h := NewCaptureScenarioHandler(graphRepo, newFakeScenarioRepo(), &fakeEventStore{}, lock, defaultRetention(), zap.NewNop())
	_, err := h.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		Name:    "Contender",
	})
	assert.ErrorIs(t, err, pkgerrors.ErrConcurrentModification)
}

func TestCaptureScenarioHandler_RetentionLimit(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	policy := scenario.RetentionPolicy{MaxScenarios: 1}
	h := NewCaptureScenarioHandler(graphRepo, scenarioRepo, &fakeEventStore{}, newFakeLock(), policy, zap.NewNop())

	_, err := h.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID: "user-1", GraphID: graph.ID().String(), Name: "First",
	})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID: "user-1", GraphID: graph.ID().String(), Name: "Second",
	})
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Len(t, scenarioRepo.scenarios, 1)
}

func TestCaptureScenarioHandler_CompensatesOnEventFailure(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	store := &fakeEventStore{saveErr: pkgerrors.ErrEventPublishFailed}
	lock := newFakeLock()
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	h := NewCaptureScenarioHandler(graphRepo, scenarioRepo, store, lock, defaultRetention(), zap.NewNop())
	_, err := h.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID:  "user-1",
		GraphID: graph.ID().String(),
		Name:    "Doomed",
	})
	require.Error(t, err)

	// The saved scenario is rolled back and the lock released.
	assert.Empty(t, scenarioRepo.scenarios)
	assert.Len(t, scenarioRepo.deleted, 1)
	assert.Equal(t, 1, lock.releases)
}

func TestDeleteScenarioHandler(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	store := &fakeEventStore{}
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	capture := NewCaptureScenarioHandler(graphRepo, scenarioRepo, store, newFakeLock(), defaultRetention(), zap.NewNop())
	snap, err := capture.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID: "user-1", GraphID: graph.ID().String(), Name: "Baseline",
	})
	require.NoError(t, err)

	h := NewDeleteScenarioHandler(graphRepo, scenarioRepo, store, zap.NewNop())
	err = h.Handle(context.Background(), commands.DeleteScenarioCommand{
		UserID:     "user-1",
		ScenarioID: snap.ID().String(),
	})
	require.NoError(t, err)

	assert.Empty(t, scenarioRepo.scenarios)
	assert.Contains(t, store.eventTypes(), "scenario.deleted")
}

func TestDeleteScenarioHandler_OwnershipFollowsParentGraph(t *testing.T) {
	graphRepo := newFakeGraphRepo()
	scenarioRepo := newFakeScenarioRepo()
	graph := seedGraph(t, graphRepo, "user-1", "Map")

	capture := NewCaptureScenarioHandler(graphRepo, scenarioRepo, &fakeEventStore{}, newFakeLock(), defaultRetention(), zap.NewNop())
	snap, err := capture.Handle(context.Background(), commands.CaptureScenarioCommand{
		UserID: "user-1", GraphID: graph.ID().String(), Name: "Baseline",
	})
	require.NoError(t, err)

	h := NewDeleteScenarioHandler(graphRepo, scenarioRepo, &fakeEventStore{}, zap.NewNop())
	err = h.Handle(context.Background(), commands.DeleteScenarioCommand{
		UserID:     "user-2",
		ScenarioID: snap.ID().String(),
	})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotAuthorized)
	assert.Len(t, scenarioRepo.scenarios, 1)
}

func TestDeleteScenarioHandler_MalformedScenarioID(t *testing.T) {
	h := NewDeleteScenarioHandler(newFakeGraphRepo(), newFakeScenarioRepo(), &fakeEventStore{}, zap.NewNop())

	err := h.Handle(context.Background(), commands.DeleteScenarioCommand{
		UserID:     "user-1",
		ScenarioID: "not-a-uuid",
	})
	assert.True(t, pkgerrors.IsValidation(err))
}
