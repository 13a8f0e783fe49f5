package commands

import (
	"errors"
	"math"
)

// KRImpactInput is the raw shape of a key-result impact in a command.
type KRImpactInput struct {
	KRID       string  `json:"krId" validate:"required"`
	DeltaP50   float64 `json:"deltaP50"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// ViewRectInput is the raw shape of canvas placement in a command.
type ViewRectInput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w" validate:"gte=0"`
	H float64 `json:"h" validate:"gte=0"`
}

// AddNodeCommand adds a typed node to a graph.
type AddNodeCommand struct {
	UserID    string          `json:"user_id" validate:"required"`
	GraphID   string          `json:"graph_id" validate:"required,uuid"`
	Type      string          `json:"type" validate:"required"`
	Title     string          `json:"title" validate:"required,max=500"`
	KRImpacts []KRImpactInput `json:"kr_impacts" validate:"max=20,dive"`
	View      *ViewRectInput  `json:"view"`
}

func (cmd AddNodeCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.Type == "" {
		return errors.New("node type is required")
	}
	if cmd.Title == "" {
		return errors.New("title is required")
	}
	if len(cmd.Title) > 500 {
		return errors.New("title exceeds maximum length")
	}
	for _, imp := range cmd.KRImpacts {
		if imp.KRID == "" {
			return errors.New("KR id is required on every impact")
		}
		if imp.Confidence < 0 || imp.Confidence > 1 || math.IsNaN(imp.Confidence) {
			return errors.New("impact confidence must be within [0, 1]")
		}
	}
	return nil
}

// UpdateNodeCommand changes a node's decision-relevant fields. Nil
// pointers leave the corresponding field untouched.
type UpdateNodeCommand struct {
	UserID    string           `json:"user_id" validate:"required"`
	GraphID   string           `json:"graph_id" validate:"required,uuid"`
	NodeID    string           `json:"node_id" validate:"required"`
	Type      *string          `json:"type"`
	Title     *string          `json:"title"`
	KRImpacts *[]KRImpactInput `json:"kr_impacts"`
}

func (cmd UpdateNodeCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.NodeID == "" {
		return errors.New("node ID is required")
	}
	if cmd.Type == nil && cmd.Title == nil && cmd.KRImpacts == nil {
		return errors.New("at least one field must be updated")
	}
	if cmd.Title != nil && *cmd.Title == "" {
		return errors.New("title cannot be empty")
	}
	return nil
}

// MoveNodeCommand updates a node's canvas placement only.
type MoveNodeCommand struct {
	UserID  string        `json:"user_id" validate:"required"`
	GraphID string        `json:"graph_id" validate:"required,uuid"`
	NodeID  string        `json:"node_id" validate:"required"`
	View    ViewRectInput `json:"view" validate:"required"`
}

func (cmd MoveNodeCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.NodeID == "" {
		return errors.New("node ID is required")
	}
	for _, v := range []float64{cmd.View.X, cmd.View.Y, cmd.View.W, cmd.View.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("view coordinates must be finite")
		}
	}
	return nil
}

// DeleteNodeCommand removes a node and its incident edges.
type DeleteNodeCommand struct {
	UserID  string `json:"user_id" validate:"required"`
	GraphID string `json:"graph_id" validate:"required,uuid"`
	NodeID  string `json:"node_id" validate:"required"`
}

func (cmd DeleteNodeCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.NodeID == "" {
		return errors.New("node ID is required")
	}
	return nil
}
