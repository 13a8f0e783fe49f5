package commands

import (
	"errors"
)

// CaptureScenarioCommand freezes the current state of a graph under a
// name.
type CaptureScenarioCommand struct {
	UserID      string `json:"user_id" validate:"required"`
	GraphID     string `json:"graph_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

func (cmd CaptureScenarioCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.GraphID == "" {
		return errors.New("graph ID is required")
	}
	if cmd.Name == "" {
		return errors.New("scenario name is required")
	}
	if len(cmd.Name) > 200 {
		return errors.New("scenario name exceeds maximum length")
	}
	if len(cmd.Description) > 2000 {
		return errors.New("scenario description exceeds maximum length")
	}
	return nil
}

// DeleteScenarioCommand removes a captured scenario.
type DeleteScenarioCommand struct {
	UserID     string `json:"user_id" validate:"required"`
	ScenarioID string `json:"scenario_id" validate:"required,uuid"`
}

func (cmd DeleteScenarioCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.ScenarioID == "" {
		return errors.New("scenario ID is required")
	}
	return nil
}
