package queries

import (
	"errors"
	"fmt"
)

// CompareScenariosQuery asks for the structural diff between two
// captured scenarios of the same graph.
type CompareScenariosQuery struct {
	UserID    string   `json:"user_id"`
	BaseID    string   `json:"base_id"`
	TargetID  string   `json:"target_id"`
	Tolerance *float64 `json:"tolerance,omitempty"`
	IDsOnly   bool     `json:"ids_only,omitempty"`
}

// Validate validates the query.
func (q CompareScenariosQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.BaseID == "" || q.TargetID == "" {
		return errors.New("both scenario IDs are required")
	}
	if q.Tolerance != nil && *q.Tolerance < 0 {
		return errors.New("tolerance cannot be negative")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer. Scenarios are immutable, so the
// id pair plus tolerance fully determines the result. The user id is
// part of the key because cache hits skip the handler's ownership
// check.
func (q CompareScenariosQuery) CacheKey() string {
	tol := 0.0
	if q.Tolerance != nil {
		tol = *q.Tolerance
	}
	return fmt.Sprintf("compare:%s:%s:%s:%g:ids=%t", q.UserID, q.BaseID, q.TargetID, tol, q.IDsOnly)
}

// CompareGraphLiveQuery asks for the structural diff between a captured
// scenario and the current live state of its graph.
type CompareGraphLiveQuery struct {
	UserID     string   `json:"user_id"`
	GraphID    string   `json:"graph_id"`
	ScenarioID string   `json:"scenario_id"`
	Tolerance  *float64 `json:"tolerance,omitempty"`
	IDsOnly    bool     `json:"ids_only,omitempty"`
}

// Validate validates the query.
func (q CompareGraphLiveQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.GraphID == "" {
		return errors.New("graphID is required")
	}
	if q.ScenarioID == "" {
		return errors.New("scenarioID is required")
	}
	if q.Tolerance != nil && *q.Tolerance < 0 {
		return errors.New("tolerance cannot be negative")
	}
	return nil
}

// NodeChangeView describes one changed node, with its state on each
// side where present.
type NodeChangeView struct {
	ID     string    `json:"id"`
	Before *NodeView `json:"before,omitempty"`
	After  *NodeView `json:"after,omitempty"`
}

// EdgeChangeView describes one changed edge, with its state on each
// side where present.
type EdgeChangeView struct {
	ID     string    `json:"id"`
	Before *EdgeView `json:"before,omitempty"`
	After  *EdgeView `json:"after,omitempty"`
}

// ComparisonResult is the full structural diff read model. Every id
// from either side lands in exactly one bucket per kind.
type ComparisonResult struct {
	BaseChecksum   string `json:"base_checksum,omitempty"`
	TargetChecksum string `json:"target_checksum,omitempty"`

	NodesAdded     []NodeChangeView `json:"nodes_added"`
	NodesRemoved   []NodeChangeView `json:"nodes_removed"`
	NodesModified  []NodeChangeView `json:"nodes_modified"`
	NodesUnchanged []string         `json:"nodes_unchanged"`

	EdgesAdded     []EdgeChangeView `json:"edges_added"`
	EdgesRemoved   []EdgeChangeView `json:"edges_removed"`
	EdgesModified  []EdgeChangeView `json:"edges_modified"`
	EdgesUnchanged []string         `json:"edges_unchanged"`

	HasChanges bool `json:"has_changes"`
}

// ComparisonSummaryQuery asks for change counts only, for badge
// rendering in scenario lists.
type ComparisonSummaryQuery struct {
	UserID   string `json:"user_id"`
	BaseID   string `json:"base_id"`
	TargetID string `json:"target_id"`
}

// Validate validates the query.
func (q ComparisonSummaryQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.BaseID == "" || q.TargetID == "" {
		return errors.New("both scenario IDs are required")
	}
	return nil
}

// ComparisonSummaryResult carries per-bucket counts.
type ComparisonSummaryResult struct {
	NodesAdded    int  `json:"nodes_added"`
	NodesRemoved  int  `json:"nodes_removed"`
	NodesModified int  `json:"nodes_modified"`
	EdgesAdded    int  `json:"edges_added"`
	EdgesRemoved  int  `json:"edges_removed"`
	EdgesModified int  `json:"edges_modified"`
	HasChanges    bool `json:"has_changes"`
}
