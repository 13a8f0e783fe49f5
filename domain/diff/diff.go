// Package diff implements structural comparison of decision-map
// snapshots. Comparison is a pure function over two node/edge sets:
// no state is retained between calls and inputs are never mutated.
package diff

import (
	"sort"

	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
)

// Snapshot is the comparable shape of a graph: nodes and edges keyed by
// their canvas ids. Nil maps are treated as empty.
type Snapshot struct {
	Nodes map[string]*entities.Node
	Edges map[string]*entities.Edge
}

// NodeChange pairs the before/after states of a node that exists on both
// sides. Before is nil for added nodes, After is nil for removed ones.
type NodeChange struct {
	ID     string
	Before *entities.Node
	After  *entities.Node
}

// EdgeChange pairs the before/after states of an edge.
type EdgeChange struct {
	ID     string
	Before *entities.Edge
	After  *entities.Edge
}

// Result partitions every id present in either snapshot into exactly one
// bucket per entity type. Buckets are sorted by id so output is stable
// regardless of map iteration order.
type Result struct {
	NodesAdded     []NodeChange
	NodesRemoved   []NodeChange
	NodesModified  []NodeChange
	NodesUnchanged []NodeChange

	EdgesAdded     []EdgeChange
	EdgesRemoved   []EdgeChange
	EdgesModified  []EdgeChange
	EdgesUnchanged []EdgeChange
}

// HasChanges reports whether anything differs between the snapshots.
func (r Result) HasChanges() bool {
	return len(r.NodesAdded)+len(r.NodesRemoved)+len(r.NodesModified)+
		len(r.EdgesAdded)+len(r.EdgesRemoved)+len(r.EdgesModified) > 0
}

// Summary condenses the result into bucket counts.
func (r Result) Summary() Summary {
	return Summary{
		NodesAdded:     len(r.NodesAdded),
		NodesRemoved:   len(r.NodesRemoved),
		NodesModified:  len(r.NodesModified),
		NodesUnchanged: len(r.NodesUnchanged),
		EdgesAdded:     len(r.EdgesAdded),
		EdgesRemoved:   len(r.EdgesRemoved),
		EdgesModified:  len(r.EdgesModified),
		EdgesUnchanged: len(r.EdgesUnchanged),
	}
}

// Summary is the count-only view of a comparison.
type Summary struct {
	NodesAdded     int `json:"nodes_added"`
	NodesRemoved   int `json:"nodes_removed"`
	NodesModified  int `json:"nodes_modified"`
	NodesUnchanged int `json:"nodes_unchanged"`
	EdgesAdded     int `json:"edges_added"`
	EdgesRemoved   int `json:"edges_removed"`
	EdgesModified  int `json:"edges_modified"`
	EdgesUnchanged int `json:"edges_unchanged"`
}

// Option configures a comparison.
type Option func(*options)

type options struct {
	tolerance float64
}

// WithTolerance sets the absolute slack applied when comparing float
// fields (edge weight, impact deltaP50 and confidence). Zero, the
// default, means exact equality. Negative values are clamped to zero.
func WithTolerance(eps float64) Option {
	return func(o *options) {
		if eps > 0 {
			o.tolerance = eps
		}
	}
}

// Compare classifies every node and edge id present in either snapshot
// as added, removed, modified, or unchanged.
//
// Matching is by id only. A node deleted and recreated under a new id is
// reported as a removal plus an addition, never as a modification. An
// edge whose endpoints moved but whose id survived is a modification.
// View rects are presentation state and never affect classification.
func Compare(before, after Snapshot, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var r Result

	for _, id := range sortedNodeIDs(before.Nodes, after.Nodes) {
		b, inBefore := lookupNode(before.Nodes, id)
		a, inAfter := lookupNode(after.Nodes, id)
		change := NodeChange{ID: id, Before: b, After: a}

		switch {
		case !inBefore:
			r.NodesAdded = append(r.NodesAdded, change)
		case !inAfter:
			r.NodesRemoved = append(r.NodesRemoved, change)
		case nodesEquivalent(b, a, o.tolerance):
			r.NodesUnchanged = append(r.NodesUnchanged, change)
		default:
			r.NodesModified = append(r.NodesModified, change)
		}
	}

	for _, id := range sortedEdgeIDs(before.Edges, after.Edges) {
		b, inBefore := lookupEdge(before.Edges, id)
		a, inAfter := lookupEdge(after.Edges, id)
		change := EdgeChange{ID: id, Before: b, After: a}

		switch {
		case !inBefore:
			r.EdgesAdded = append(r.EdgesAdded, change)
		case !inAfter:
			r.EdgesRemoved = append(r.EdgesRemoved, change)
		case edgesEquivalent(b, a, o.tolerance):
			r.EdgesUnchanged = append(r.EdgesUnchanged, change)
		default:
			r.EdgesModified = append(r.EdgesModified, change)
		}
	}

	return r
}

// nodesEquivalent compares the decision-relevant fields of two nodes.
// View rect is deliberately excluded: dragging a node around the canvas
// is not an edit to the model.
func nodesEquivalent(a, b *entities.Node, eps float64) bool {
	if a.Type() != b.Type() {
		return false
	}
	if !a.Title().Equals(b.Title()) {
		return false
	}
	return valueobjects.ImpactsEqualWithin(a.KRImpacts(), b.KRImpacts(), eps)
}

// edgesEquivalent compares endpoints, kind, and weight.
func edgesEquivalent(a, b *entities.Edge, eps float64) bool {
	if !a.From().Equals(b.From()) || !a.To().Equals(b.To()) {
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return weightsEqual(a.Weight(), b.Weight(), eps)
}

func weightsEqual(a, b *float64, eps float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if eps <= 0 {
		return *a == *b
	}
	d := *a - *b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func lookupNode(m map[string]*entities.Node, id string) (*entities.Node, bool) {
	if m == nil {
		return nil, false
	}
	n, ok := m[id]
	return n, ok
}

func lookupEdge(m map[string]*entities.Edge, id string) (*entities.Edge, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m[id]
	return e, ok
}

func sortedNodeIDs(a, b map[string]*entities.Node) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for id := range b {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func sortedEdgeIDs(a, b map[string]*entities.Edge) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for id := range b {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
