package queries

import (
	"errors"
	"time"
)

// GetScenarioQuery asks for one captured scenario with its frozen
// snapshot.
type GetScenarioQuery struct {
	UserID     string `json:"user_id"`
	ScenarioID string `json:"scenario_id"`
}

// Validate validates the query.
func (q GetScenarioQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.ScenarioID == "" {
		return errors.New("scenarioID is required")
	}
	return nil
}

// GetScenarioResult is the scenario read model.
type GetScenarioResult struct {
	ID            string     `json:"id"`
	GraphID       string     `json:"graph_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Nodes         []NodeView `json:"nodes"`
	Edges         []EdgeView `json:"edges"`
	SchemaVersion int        `json:"schema_version"`
	Checksum      string     `json:"checksum"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     string     `json:"created_by"`
}

// ListScenariosQuery asks for the scenarios captured for a graph,
// newest first.
type ListScenariosQuery struct {
	UserID  string `json:"user_id"`
	GraphID string `json:"graph_id"`
}

// Validate validates the query.
func (q ListScenariosQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.GraphID == "" {
		return errors.New("graphID is required")
	}
	return nil
}

// ScenarioSummary is the list-view shape of a scenario.
type ScenarioSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListScenariosResult holds a graph's scenario summaries.
type ListScenariosResult struct {
	GraphID   string            `json:"graph_id"`
	Scenarios []ScenarioSummary `json:"scenarios"`
	Total     int               `json:"total"`
}
