package commands

import (
	"errors"
)

// CreateGraphCommand creates a new decision map for a user.
type CreateGraphCommand struct {
	UserID string `json:"user_id" validate:"required"`
	Name   string `json:"name" validate:"max=200"`
}

func (cmd CreateGraphCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if len(cmd.Name) > 200 {
		return errors.New("graph name exceeds maximum length")
	}
	return nil
}

// RenameGraphCommand changes a graph's display name.
type RenameGraphCommand struct {
	UserID  string `json:"user_id" validate:"required"`
	GraphID string `json:"graph_id" validate:"required,uuid"`
	Name    string `json:"name" validate:"required,max=200"`
}

func (cmd RenameGraphCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.Name == "" {
		return errors.New("graph name is required")
	}
	return nil
}

// DeleteGraphCommand removes a graph with all its nodes, edges, and
// scenarios.
type DeleteGraphCommand struct {
	UserID  string `json:"user_id" validate:"required"`
	GraphID string `json:"graph_id" validate:"required,uuid"`
}

func (cmd DeleteGraphCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	return nil
}
