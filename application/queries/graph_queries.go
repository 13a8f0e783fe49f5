package queries

import (
	"errors"
	"time"
)

// GetGraphQuery asks for a full graph with nodes and edges for canvas
// rendering.
type GetGraphQuery struct {
	UserID  string `json:"user_id"`
	GraphID string `json:"graph_id"`
}

// Validate validates the query.
func (q GetGraphQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.GraphID == "" {
		return errors.New("graphID is required")
	}
	return nil
}

// NodeView is the read-model shape of a node.
type NodeView struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	KRImpacts []KRImpactView `json:"krImpacts,omitempty"`
	View      *ViewRectView  `json:"view,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EdgeView is the read-model shape of an edge.
type EdgeView struct {
	ID     string   `json:"id"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   string   `json:"kind"`
	Weight *float64 `json:"weight,omitempty"`
}

// KRImpactView is the read-model shape of a key-result impact.
type KRImpactView struct {
	KRID       string  `json:"krId"`
	DeltaP50   float64 `json:"deltaP50"`
	Confidence float64 `json:"confidence"`
}

// ViewRectView is the read-model shape of canvas placement.
type ViewRectView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// GraphStats summarizes graph shape for the canvas sidebar.
type GraphStats struct {
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	Density   float64 `json:"density"`
}

// GetGraphResult is the complete graph read model.
type GetGraphResult struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Nodes     []NodeView `json:"nodes"`
	Edges     []EdgeView `json:"edges"`
	Stats     GraphStats `json:"stats"`
	Version   int        `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ListGraphsQuery asks for all graphs owned by a user.
type ListGraphsQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query.
func (q ListGraphsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	return nil
}

// GraphSummary is the list-view shape of a graph.
type GraphSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListGraphsResult holds the user's graph summaries.
type ListGraphsResult struct {
	Graphs []GraphSummary `json:"graphs"`
	Total  int            `json:"total"`
}
