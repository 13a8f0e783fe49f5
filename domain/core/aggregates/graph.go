package aggregates

import (
	"time"

	"causemap/domain/config"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/diff"
	"causemap/domain/events"
	pkgerrors "causemap/pkg/errors"
)

// Graph is the aggregate root for a decision map: a set of typed nodes
// and the kinded edges between them. All mutations go through the
// aggregate so the referential invariant holds at every step: an edge's
// endpoints always name nodes present in the graph.
type Graph struct {
	id        valueobjects.GraphID
	userID    string
	name      string
	nodes     map[string]*entities.Node
	edges     map[string]*entities.Edge
	createdAt time.Time
	updatedAt time.Time
	version   int

	cfg    *config.DomainConfig
	events []events.DomainEvent
}

// NewGraph creates an empty graph for a user.
func NewGraph(userID, name string) (*Graph, error) {
	return NewGraphWithConfig(userID, name, config.DefaultDomainConfig())
}

// NewGraphWithConfig creates an empty graph with explicit domain limits.
func NewGraphWithConfig(userID, name string, cfg *config.DomainConfig) (*Graph, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if name == "" {
		name = cfg.DefaultGraphName
	}

	now := time.Now()
	g := &Graph{
		id:        valueobjects.NewGraphID(),
		userID:    userID,
		name:      name,
		nodes:     make(map[string]*entities.Node),
		edges:     make(map[string]*entities.Edge),
		createdAt: now,
		updatedAt: now,
		version:   1,
		cfg:       cfg,
	}
	g.addEvent(events.NewGraphCreated(g.id, userID, name, now))
	return g, nil
}

// ReconstructGraph rebuilds a graph from repository data. The caller is
// expected to run Validate afterwards; stored data can predate current
// invariant enforcement.
func ReconstructGraph(
	id valueobjects.GraphID,
	userID, name string,
	nodes map[string]*entities.Node,
	edges map[string]*entities.Edge,
	createdAt, updatedAt time.Time,
	version int,
) *Graph {
	if nodes == nil {
		nodes = make(map[string]*entities.Node)
	}
	if edges == nil {
		edges = make(map[string]*entities.Edge)
	}
	return &Graph{
		id:        id,
		userID:    userID,
		name:      name,
		nodes:     nodes,
		edges:     edges,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
		cfg:       config.DefaultDomainConfig(),
	}
}

func (g *Graph) ID() valueobjects.GraphID { return g.id }
func (g *Graph) UserID() string           { return g.userID }
func (g *Graph) Name() string             { return g.name }
func (g *Graph) CreatedAt() time.Time     { return g.createdAt }
func (g *Graph) UpdatedAt() time.Time     { return g.updatedAt }
func (g *Graph) Version() int             { return g.version }
func (g *Graph) NodeCount() int           { return len(g.nodes) }
func (g *Graph) EdgeCount() int           { return len(g.edges) }

// Rename changes the graph's display name.
func (g *Graph) Rename(name string) error {
	if name == "" {
		return pkgerrors.ErrGraphNameRequired
	}
	g.name = name
	g.touch()
	return nil
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	if len(g.nodes) >= g.cfg.MaxNodesPerGraph {
		return pkgerrors.ErrGraphNodeLimit
	}
	key := node.ID().String()
	if _, exists := g.nodes[key]; exists {
		return pkgerrors.NewConflictError("node already exists in graph")
	}

	g.nodes[key] = node
	g.touch()
	g.addEvent(events.NewNodeAdded(g.id, node.ID(), node.Type().String(), node.Title().String(), time.Now()))
	return nil
}

// GetNode returns the node with the given id.
func (g *Graph) GetNode(id valueobjects.NodeID) (*entities.Node, error) {
	node, ok := g.nodes[id.String()]
	if !ok {
		return nil, pkgerrors.ErrNodeNotFound
	}
	return node, nil
}

// UpdateNodeTitle changes a node's title.
func (g *Graph) UpdateNodeTitle(id valueobjects.NodeID, title valueobjects.Title) error {
	node, err := g.GetNode(id)
	if err != nil {
		return err
	}
	if err := node.UpdateTitle(title); err != nil {
		return err
	}
	g.touch()
	g.addEvent(events.NewNodeUpdated(g.id, id, time.Now()))
	return nil
}

// UpdateNodeType changes a node's decision-model type.
func (g *Graph) UpdateNodeType(id valueobjects.NodeID, nodeType entities.NodeType) error {
	node, err := g.GetNode(id)
	if err != nil {
		return err
	}
	if err := node.UpdateType(nodeType); err != nil {
		return err
	}
	g.touch()
	g.addEvent(events.NewNodeUpdated(g.id, id, time.Now()))
	return nil
}

// SetNodeImpacts replaces a node's key-result impact list.
func (g *Graph) SetNodeImpacts(id valueobjects.NodeID, impacts []valueobjects.KRImpact) error {
	node, err := g.GetNode(id)
	if err != nil {
		return err
	}
	if len(impacts) > g.cfg.MaxImpactsPerNode {
		return pkgerrors.ErrInvalidImpact
	}
	if err := node.SetKRImpacts(impacts); err != nil {
		return err
	}
	g.touch()
	g.addEvent(events.NewNodeUpdated(g.id, id, time.Now()))
	return nil
}

// MoveNode updates a node's canvas placement. No structural event is
// emitted; placement is presentation state.
func (g *Graph) MoveNode(id valueobjects.NodeID, rect valueobjects.ViewRect) error {
	node, err := g.GetNode(id)
	if err != nil {
		return err
	}
	node.MoveTo(rect)
	g.updatedAt = time.Now()
	return nil
}

// RemoveNode removes a node and cascades to every incident edge, so the
// referential invariant survives the removal.
func (g *Graph) RemoveNode(id valueobjects.NodeID) error {
	key := id.String()
	if _, ok := g.nodes[key]; !ok {
		return pkgerrors.ErrNodeNotFound
	}

	var removed []valueobjects.EdgeID
	for edgeKey, edge := range g.edges {
		if edge.References(id) {
			removed = append(removed, edge.ID())
			delete(g.edges, edgeKey)
		}
	}
	delete(g.nodes, key)

	g.touch()
	g.addEvent(events.NewNodeRemoved(g.id, id, removed, time.Now()))
	return nil
}

// ConnectNodes creates a new edge between two existing nodes.
func (g *Graph) ConnectNodes(from, to valueobjects.NodeID, kind entities.EdgeKind, weight *float64) (*entities.Edge, error) {
	if from.Equals(to) && !g.cfg.AllowSelfConnections {
		return nil, pkgerrors.ErrSelfReferentialEdge
	}
	if _, ok := g.nodes[from.String()]; !ok {
		return nil, pkgerrors.ErrEdgeEndpointMissing
	}
	if _, ok := g.nodes[to.String()]; !ok {
		return nil, pkgerrors.ErrEdgeEndpointMissing
	}
	if len(g.edges) >= g.cfg.MaxEdgesPerGraph {
		return nil, pkgerrors.ErrGraphEdgeLimit
	}

	edge, err := entities.NewEdge(from, to, kind, weight)
	if err != nil {
		return nil, err
	}

	g.edges[edge.ID().String()] = edge
	g.touch()
	g.addEvent(events.NewEdgeConnected(g.id, edge.ID(), from, to, kind.String(), time.Now()))
	return edge, nil
}

// GetEdge returns the edge with the given id.
func (g *Graph) GetEdge(id valueobjects.EdgeID) (*entities.Edge, error) {
	edge, ok := g.edges[id.String()]
	if !ok {
		return nil, pkgerrors.ErrEdgeNotFound
	}
	return edge, nil
}

// RetargetEdge moves an edge's endpoints. The edge keeps its identity;
// downstream comparison reports this as a modification, not as a
// removal plus an addition.
func (g *Graph) RetargetEdge(id valueobjects.EdgeID, from, to valueobjects.NodeID) error {
	edge, err := g.GetEdge(id)
	if err != nil {
		return err
	}
	if from.Equals(to) && !g.cfg.AllowSelfConnections {
		return pkgerrors.ErrSelfReferentialEdge
	}
	if _, ok := g.nodes[from.String()]; !ok {
		return pkgerrors.ErrEdgeEndpointMissing
	}
	if _, ok := g.nodes[to.String()]; !ok {
		return pkgerrors.ErrEdgeEndpointMissing
	}
	if err := edge.Retarget(from, to); err != nil {
		return err
	}
	g.touch()
	g.addEvent(events.NewEdgeUpdated(g.id, id, time.Now()))
	return nil
}

// UpdateEdgeKind changes an edge's relation kind.
func (g *Graph) UpdateEdgeKind(id valueobjects.EdgeID, kind entities.EdgeKind) error {
	edge, err := g.GetEdge(id)
	if err != nil {
		return err
	}
	if err := edge.UpdateKind(kind); err != nil {
		return err
	}
	g.touch()
	g.addEvent(events.NewEdgeUpdated(g.id, id, time.Now()))
	return nil
}

// UpdateEdgeWeight changes or clears an edge's weight annotation.
func (g *Graph) UpdateEdgeWeight(id valueobjects.EdgeID, weight *float64) error {
	edge, err := g.GetEdge(id)
	if err != nil {
		return err
	}
	if err := edge.UpdateWeight(weight); err != nil {
		return err
	}
	g.touch()
	g.addEvent(events.NewEdgeUpdated(g.id, id, time.Now()))
	return nil
}

// RemoveEdge removes an edge.
func (g *Graph) RemoveEdge(id valueobjects.EdgeID) error {
	key := id.String()
	if _, ok := g.edges[key]; !ok {
		return pkgerrors.ErrEdgeNotFound
	}
	delete(g.edges, key)
	g.touch()
	g.addEvent(events.NewEdgeRemoved(g.id, id, time.Now()))
	return nil
}

// Nodes returns the node map keyed by node id. The map is a copy; the
// nodes themselves are shared.
func (g *Graph) Nodes() map[string]*entities.Node {
	out := make(map[string]*entities.Node, len(g.nodes))
	for k, v := range g.nodes {
		out[k] = v
	}
	return out
}

// Edges returns the edge map keyed by edge id. The map is a copy.
func (g *Graph) Edges() map[string]*entities.Edge {
	out := make(map[string]*entities.Edge, len(g.edges))
	for k, v := range g.edges {
		out[k] = v
	}
	return out
}

// Snapshot projects the graph into its comparable shape. Entities are
// cloned, not shared: title, type, impact, endpoint, kind, and weight
// updates mutate the live entities in place, and a snapshot taken before
// such a mutation has to keep reading the old values for the comparison
// to see the change.
func (g *Graph) Snapshot() diff.Snapshot {
	nodes := make(map[string]*entities.Node, len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v.Clone()
	}
	edges := make(map[string]*entities.Edge, len(g.edges))
	for k, v := range g.edges {
		edges[k] = v.Clone()
	}
	return diff.Snapshot{Nodes: nodes, Edges: edges}
}

// FindPath returns a directed path of node ids from start to goal using
// breadth-first search, or nil when no causal chain connects them.
func (g *Graph) FindPath(start, goal valueobjects.NodeID) []valueobjects.NodeID {
	if _, ok := g.nodes[start.String()]; !ok {
		return nil
	}
	if _, ok := g.nodes[goal.String()]; !ok {
		return nil
	}
	if start.Equals(goal) {
		return []valueobjects.NodeID{start}
	}

	adjacency := make(map[string][]valueobjects.NodeID)
	for _, edge := range g.edges {
		adjacency[edge.From().String()] = append(adjacency[edge.From().String()], edge.To())
	}

	parent := map[string]valueobjects.NodeID{start.String(): start}
	queue := []valueobjects.NodeID{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current.String()] {
			if _, visited := parent[next.String()]; visited {
				continue
			}
			parent[next.String()] = current
			if next.Equals(goal) {
				return rebuildPath(parent, start, goal)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func rebuildPath(parent map[string]valueobjects.NodeID, start, goal valueobjects.NodeID) []valueobjects.NodeID {
	path := []valueobjects.NodeID{goal}
	for current := goal; !current.Equals(start); {
		current = parent[current.String()]
		path = append([]valueobjects.NodeID{current}, path...)
	}
	return path
}

// Validate re-checks the referential invariant. Mutation paths enforce
// it already; this exists for graphs reconstructed from storage.
func (g *Graph) Validate() error {
	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.From().String()]; !ok {
			return pkgerrors.ErrEdgeEndpointMissing
		}
		if _, ok := g.nodes[edge.To().String()]; !ok {
			return pkgerrors.ErrEdgeEndpointMissing
		}
	}
	return nil
}

// GetUncommittedEvents returns events raised since the last commit.
func (g *Graph) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(g.events))
	copy(out, g.events)
	return out
}

// MarkEventsAsCommitted clears the uncommitted event list.
func (g *Graph) MarkEventsAsCommitted() {
	g.events = nil
}

func (g *Graph) addEvent(event events.DomainEvent) {
	g.events = append(g.events, event)
}

func (g *Graph) touch() {
	g.updatedAt = time.Now()
	g.version++
}
