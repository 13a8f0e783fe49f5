package handlers

import (
	"context"
	"sort"
	"sync"

	"causemap/domain/core/aggregates"
	"causemap/domain/core/valueobjects"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

// In-memory repositories for query handler tests.

type fakeGraphRepo struct {
	mu     sync.Mutex
	graphs map[string]*aggregates.Graph
}

func newFakeGraphRepo() *fakeGraphRepo {
	return &fakeGraphRepo{graphs: make(map[string]*aggregates.Graph)}
}

func (r *fakeGraphRepo) Save(ctx context.Context, graph *aggregates.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[graph.ID().String()] = graph
	return nil
}

func (r *fakeGraphRepo) GetByID(ctx context.Context, id valueobjects.GraphID) (*aggregates.Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	graph, ok := r.graphs[id.String()]
	if !ok {
		return nil, pkgerrors.ErrGraphNotFound
	}
	return graph, nil
}

func (r *fakeGraphRepo) GetByUserID(ctx context.Context, userID string) ([]*aggregates.Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*aggregates.Graph
	for _, g := range r.graphs {
		if g.UserID() == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGraphRepo) Delete(ctx context.Context, id valueobjects.GraphID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.graphs, id.String())
	return nil
}

type fakeScenarioRepo struct {
	mu        sync.Mutex
	scenarios map[string]*scenario.Scenario
}

func newFakeScenarioRepo() *fakeScenarioRepo {
	return &fakeScenarioRepo{scenarios: make(map[string]*scenario.Scenario)}
}

func (r *fakeScenarioRepo) Save(ctx context.Context, s *scenario.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[s.ID().String()] = s
	return nil
}

func (r *fakeScenarioRepo) GetByID(ctx context.Context, id valueobjects.ScenarioID) (*scenario.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scenarios[id.String()]
	if !ok {
		return nil, pkgerrors.ErrScenarioNotFound
	}
	return s, nil
}

func (r *fakeScenarioRepo) ListByGraphID(ctx context.Context, graphID valueobjects.GraphID) ([]*scenario.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*scenario.Scenario
	for _, s := range r.scenarios {
		if s.GraphID().Equals(graphID) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (r *fakeScenarioRepo) CountByGraphID(ctx context.Context, graphID valueobjects.GraphID) (int, error) {
	list, _ := r.ListByGraphID(ctx, graphID)
	return len(list), nil
}

func (r *fakeScenarioRepo) Delete(ctx context.Context, id valueobjects.ScenarioID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[id.String()]; !ok {
		return pkgerrors.ErrScenarioNotFound
	}
	delete(r.scenarios, id.String())
	return nil
}
