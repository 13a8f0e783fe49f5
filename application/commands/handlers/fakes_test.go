package handlers

import (
	"context"
	"errors"
	"sort"
	"sync"

	"causemap/domain/core/aggregates"
	"causemap/domain/core/valueobjects"
	"causemap/domain/events"
	"causemap/domain/scenario"
	pkgerrors "causemap/pkg/errors"
)

// In-memory ports for handler tests.

type fakeGraphRepo struct {
	mu      sync.Mutex
	graphs  map[string]*aggregates.Graph
	saveErr error
	saves   int
}

func newFakeGraphRepo() *fakeGraphRepo {
	return &fakeGraphRepo{graphs: make(map[string]*aggregates.Graph)}
}

func (r *fakeGraphRepo) Save(ctx context.Context, graph *aggregates.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
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
	if _, ok := r.graphs[id.String()]; !ok {
		return pkgerrors.ErrGraphNotFound
	}
	delete(r.graphs, id.String())
	return nil
}

type fakeScenarioRepo struct {
	mu        sync.Mutex
	scenarios map[string]*scenario.Scenario
	saveErr   error
	deleted   []string
}

func newFakeScenarioRepo() *fakeScenarioRepo {
	return &fakeScenarioRepo{scenarios: make(map[string]*scenario.Scenario)}
}

func (r *fakeScenarioRepo) Save(ctx context.Context, s *scenario.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
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
	r.deleted = append(r.deleted, id.String())
	return nil
}

type fakeEventStore struct {
	mu      sync.Mutex
	saved   []events.DomainEvent
	saveErr error
}

func (s *fakeEventStore) SaveEvents(ctx context.Context, evts []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, evts...)
	return nil
}

func (s *fakeEventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.DomainEvent
	for _, e := range s.saved {
		if e.GetAggregateID() == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.saved[:0]
	for _, e := range s.saved {
		if e.GetAggregateID() != aggregateID {
			kept = append(kept, e)
		}
	}
	s.saved = kept
	return nil
}

func (s *fakeEventStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.saved))
	for _, e := range s.saved {
		out = append(out, e.GetEventType())
	}
	return out
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	releases int
	failNext bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]bool)}
}

func (l *fakeLock) Acquire(ctx context.Context, resource string, ttlSeconds int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext || l.held[resource] {
		return errors.New("lock is held")
	}
	l.held[resource] = true
	l.acquires++
	return nil
}

func (l *fakeLock) Release(ctx context.Context, resource string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, resource)
	l.releases++
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	userIDs  []string
	payloads []interface{}
}

func (n *fakeNotifier) NotifyGraphChanged(ctx context.Context, userID string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userIDs = append(n.userIDs, userID)
	n.payloads = append(n.payloads, payload)
	return nil
}
