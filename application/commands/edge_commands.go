package commands

import (
	"errors"
)

// ConnectNodesCommand creates a kinded edge between two nodes.
type ConnectNodesCommand struct {
	UserID  string   `json:"user_id" validate:"required"`
	GraphID string   `json:"graph_id" validate:"required,uuid"`
	FromID  string   `json:"from_id" validate:"required"`
	ToID    string   `json:"to_id" validate:"required"`
	Kind    string   `json:"kind" validate:"required"`
	Weight  *float64 `json:"weight" validate:"omitempty,gte=0,lte=1"`
}

func (cmd ConnectNodesCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.FromID == "" || cmd.ToID == "" {
		return errors.New("both edge endpoints are required")
	}
	if cmd.Kind == "" {
		return errors.New("edge kind is required")
	}
	if cmd.Weight != nil && (*cmd.Weight < 0 || *cmd.Weight > 1) {
		return errors.New("edge weight must be within [0, 1]")
	}
	return nil
}

// UpdateEdgeCommand changes an edge's endpoints, kind, or weight. Nil
// pointers leave the corresponding field untouched; ClearWeight drops
// the weight annotation entirely.
type UpdateEdgeCommand struct {
	UserID      string   `json:"user_id" validate:"required"`
	GraphID     string   `json:"graph_id" validate:"required,uuid"`
	EdgeID      string   `json:"edge_id" validate:"required"`
	FromID      *string  `json:"from_id"`
	ToID        *string  `json:"to_id"`
	Kind        *string  `json:"kind"`
	Weight      *float64 `json:"weight" validate:"omitempty,gte=0,lte=1"`
	ClearWeight bool     `json:"clear_weight"`
}

func (cmd UpdateEdgeCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.EdgeID == "" {
		return errors.New("edge ID is required")
	}
	if (cmd.FromID == nil) != (cmd.ToID == nil) {
		return errors.New("retargeting requires both endpoints")
	}
	if cmd.FromID == nil && cmd.Kind == nil && cmd.Weight == nil && !cmd.ClearWeight {
		return errors.New("at least one field must be updated")
	}
	if cmd.Weight != nil && cmd.ClearWeight {
		return errors.New("cannot set and clear weight in the same command")
	}
	if cmd.Weight != nil && (*cmd.Weight < 0 || *cmd.Weight > 1) {
		return errors.New("edge weight must be within [0, 1]")
	}
	return nil
}

// DeleteEdgeCommand removes an edge.
type DeleteEdgeCommand struct {
	UserID  string `json:"user_id" validate:"required"`
	GraphID string `json:"graph_id" validate:"required,uuid"`
	EdgeID  string `json:"edge_id" validate:"required"`
}

func (cmd DeleteEdgeCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.EdgeID == "" {
		return errors.New("edge ID is required")
	}
	return nil
}
