// Package scenario provides named, immutable snapshots of decision
// graphs. A scenario freezes the structural state of a graph at capture
// time so it can be compared against other scenarios or the live canvas
// later, regardless of what happened to the graph since.
package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"causemap/domain/core/aggregates"
	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/domain/diff"
	pkgerrors "causemap/pkg/errors"
)

// CurrentSchemaVersion tags the snapshot document layout. Bump it when
// the record shapes below change incompatibly.
const CurrentSchemaVersion = 1

// NodeRecord is the frozen, serializable form of a node.
type NodeRecord struct {
	ID        string                  `json:"id"`
	Type      string                  `json:"type"`
	Title     string                  `json:"title"`
	KRImpacts []valueobjects.KRImpact `json:"kr_impacts,omitempty"`
	View      *valueobjects.ViewRect  `json:"view,omitempty"`
}

// EdgeRecord is the frozen, serializable form of an edge.
type EdgeRecord struct {
	ID     string   `json:"id"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   string   `json:"kind"`
	Weight *float64 `json:"weight,omitempty"`
}

// Scenario is an immutable named snapshot of a graph.
type Scenario struct {
	id            valueobjects.ScenarioID
	graphID       valueobjects.GraphID
	name          string
	description   string
	nodes         []NodeRecord
	edges         []EdgeRecord
	schemaVersion int
	checksum      string
	createdAt     time.Time
	createdBy     string
}

// Capture freezes the current structural state of a graph under a name.
func Capture(graph *aggregates.Graph, name, description, userID string) (*Scenario, error) {
	if graph == nil {
		return nil, pkgerrors.NewValidationError("graph cannot be nil")
	}
	if name == "" {
		return nil, pkgerrors.ErrScenarioNameRequired
	}

	nodes := freezeNodes(graph.Nodes())
	edges := freezeEdges(graph.Edges())

	checksum, err := computeChecksum(graph.ID().String(), nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to compute scenario checksum: %w", err)
	}

	return &Scenario{
		id:            valueobjects.NewScenarioID(),
		graphID:       graph.ID(),
		name:          name,
		description:   description,
		nodes:         nodes,
		edges:         edges,
		schemaVersion: CurrentSchemaVersion,
		checksum:      checksum,
		createdAt:     time.Now(),
		createdBy:     userID,
	}, nil
}

// Reconstruct rebuilds a scenario from repository data. The stored
// checksum is trusted; recomputing it on every read would penalize the
// hot comparison path for no gain.
func Reconstruct(
	id valueobjects.ScenarioID,
	graphID valueobjects.GraphID,
	name, description string,
	nodes []NodeRecord,
	edges []EdgeRecord,
	schemaVersion int,
	checksum string,
	createdAt time.Time,
	createdBy string,
) *Scenario {
	return &Scenario{
		id:            id,
		graphID:       graphID,
		name:          name,
		description:   description,
		nodes:         nodes,
		edges:         edges,
		schemaVersion: schemaVersion,
		checksum:      checksum,
		createdAt:     createdAt,
		createdBy:     createdBy,
	}
}

func (s *Scenario) ID() valueobjects.ScenarioID   { return s.id }
func (s *Scenario) GraphID() valueobjects.GraphID { return s.graphID }
func (s *Scenario) Name() string                  { return s.name }
func (s *Scenario) Description() string           { return s.description }
func (s *Scenario) SchemaVersion() int            { return s.schemaVersion }
func (s *Scenario) Checksum() string              { return s.checksum }
func (s *Scenario) CreatedAt() time.Time          { return s.createdAt }
func (s *Scenario) CreatedBy() string             { return s.createdBy }
func (s *Scenario) NodeCount() int                { return len(s.nodes) }
func (s *Scenario) EdgeCount() int                { return len(s.edges) }

// Nodes returns a copy of the frozen node records.
func (s *Scenario) Nodes() []NodeRecord {
	out := make([]NodeRecord, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a copy of the frozen edge records.
func (s *Scenario) Edges() []EdgeRecord {
	out := make([]EdgeRecord, len(s.edges))
	copy(out, s.edges)
	return out
}

// Snapshot thaws the frozen records back into the comparable shape.
func (s *Scenario) Snapshot() (diff.Snapshot, error) {
	nodes := make(map[string]*entities.Node, len(s.nodes))
	for _, rec := range s.nodes {
		node, err := thawNode(rec)
		if err != nil {
			return diff.Snapshot{}, fmt.Errorf("scenario %s: %w", s.id.String(), err)
		}
		nodes[rec.ID] = node
	}

	edges := make(map[string]*entities.Edge, len(s.edges))
	for _, rec := range s.edges {
		edge, err := thawEdge(rec)
		if err != nil {
			return diff.Snapshot{}, fmt.Errorf("scenario %s: %w", s.id.String(), err)
		}
		edges[rec.ID] = edge
	}

	return diff.Snapshot{Nodes: nodes, Edges: edges}, nil
}

func freezeNodes(nodes map[string]*entities.Node) []NodeRecord {
	records := make([]NodeRecord, 0, len(nodes))
	for id, node := range nodes {
		records = append(records, NodeRecord{
			ID:        id,
			Type:      node.Type().String(),
			Title:     node.Title().String(),
			KRImpacts: node.KRImpacts(),
			View:      node.ViewRect(),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func freezeEdges(edges map[string]*entities.Edge) []EdgeRecord {
	records := make([]EdgeRecord, 0, len(edges))
	for id, edge := range edges {
		records = append(records, EdgeRecord{
			ID:     id,
			From:   edge.From().String(),
			To:     edge.To().String(),
			Kind:   edge.Kind().String(),
			Weight: edge.Weight(),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func thawNode(rec NodeRecord) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(rec.ID)
	if err != nil {
		return nil, err
	}
	nodeType, err := entities.ParseNodeType(rec.Type)
	if err != nil {
		return nil, err
	}
	title, err := valueobjects.NewTitle(rec.Title)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructNode(id, nodeType, title, rec.KRImpacts, rec.View, time.Time{}, time.Time{}, 1), nil
}

func thawEdge(rec EdgeRecord) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(rec.ID)
	if err != nil {
		return nil, err
	}
	from, err := valueobjects.NewNodeIDFromString(rec.From)
	if err != nil {
		return nil, err
	}
	to, err := valueobjects.NewNodeIDFromString(rec.To)
	if err != nil {
		return nil, err
	}
	kind, err := entities.ParseEdgeKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructEdge(id, from, to, kind, rec.Weight, time.Time{}, time.Time{}, 1), nil
}

// computeChecksum hashes the canonical JSON of the structural state.
// View rects are excluded: two captures of the same structure hash the
// same even when nodes sit at different canvas positions, which keeps
// comparison-cache keys stable across pure layout changes.
func computeChecksum(graphID string, nodes []NodeRecord, edges []EdgeRecord) (string, error) {
	type checksumNode struct {
		ID        string                  `json:"id"`
		Type      string                  `json:"type"`
		Title     string                  `json:"title"`
		KRImpacts []valueobjects.KRImpact `json:"kr_impacts,omitempty"`
	}

	structural := make([]checksumNode, len(nodes))
	for i, n := range nodes {
		structural[i] = checksumNode{ID: n.ID, Type: n.Type, Title: n.Title, KRImpacts: n.KRImpacts}
	}

	doc := struct {
		GraphID       string         `json:"graph_id"`
		SchemaVersion int            `json:"schema_version"`
		Nodes         []checksumNode `json:"nodes"`
		Edges         []EdgeRecord   `json:"edges"`
	}{
		GraphID:       graphID,
		SchemaVersion: CurrentSchemaVersion,
		Nodes:         structural,
		Edges:         edges,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// RetentionPolicy bounds how many scenarios a graph accumulates.
type RetentionPolicy struct {
	MaxScenarios    int           `json:"max_scenarios"`
	RetentionPeriod time.Duration `json:"retention_period"`
}

// DefaultRetentionPolicy returns the default retention policy.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxScenarios:    100,
		RetentionPeriod: 365 * 24 * time.Hour,
	}
}

// ShouldPrune reports whether a scenario captured at capturedAt should
// be dropped given the current count for its graph.
func (p RetentionPolicy) ShouldPrune(capturedAt time.Time, countForGraph int, now time.Time) bool {
	if p.MaxScenarios > 0 && countForGraph > p.MaxScenarios {
		return true
	}
	if p.RetentionPeriod > 0 && now.Sub(capturedAt) > p.RetentionPeriod {
		return true
	}
	return false
}
