package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// NodeID identifies a node within a graph. Value objects are immutable
// and have no identity beyond their value.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID.
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string.
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

func (id NodeID) String() string          { return id.value }
func (id NodeID) Equals(other NodeID) bool { return id.value == other.value }
func (id NodeID) IsZero() bool            { return id.value == "" }

func (id NodeID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

func (id *NodeID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalIDString(data, "NodeID")
	if err != nil {
		return err
	}
	id.value = v
	return nil
}

// EdgeID identifies an edge within a graph.
type EdgeID struct {
	value string
}

// NewEdgeID creates a new random EdgeID.
func NewEdgeID() EdgeID {
	return EdgeID{value: uuid.New().String()}
}

// NewEdgeIDFromString creates an EdgeID from an existing string.
func NewEdgeIDFromString(id string) (EdgeID, error) {
	if id == "" {
		return EdgeID{}, errors.New("edge ID cannot be empty")
	}
	return EdgeID{value: id}, nil
}

func (id EdgeID) String() string          { return id.value }
func (id EdgeID) Equals(other EdgeID) bool { return id.value == other.value }
func (id EdgeID) IsZero() bool            { return id.value == "" }

func (id EdgeID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

func (id *EdgeID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalIDString(data, "EdgeID")
	if err != nil {
		return err
	}
	id.value = v
	return nil
}

// GraphID identifies a graph aggregate.
type GraphID struct {
	value string
}

// NewGraphID creates a new random GraphID.
func NewGraphID() GraphID {
	return GraphID{value: uuid.New().String()}
}

// NewGraphIDFromString creates a GraphID from an existing string.
func NewGraphIDFromString(id string) (GraphID, error) {
	if id == "" {
		return GraphID{}, errors.New("graph ID cannot be empty")
	}
	if !isValidUUID(id) {
		return GraphID{}, errors.New("graph ID must be a valid UUID")
	}
	return GraphID{value: id}, nil
}

func (id GraphID) String() string           { return id.value }
func (id GraphID) Equals(other GraphID) bool { return id.value == other.value }
func (id GraphID) IsZero() bool             { return id.value == "" }

func (id GraphID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

func (id *GraphID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalIDString(data, "GraphID")
	if err != nil {
		return err
	}
	id.value = v
	return nil
}

// ScenarioID identifies a captured scenario snapshot.
type ScenarioID struct {
	value string
}

// NewScenarioID creates a new random ScenarioID.
func NewScenarioID() ScenarioID {
	return ScenarioID{value: uuid.New().String()}
}

// NewScenarioIDFromString creates a ScenarioID from an existing string.
func NewScenarioIDFromString(id string) (ScenarioID, error) {
	if id == "" {
		return ScenarioID{}, errors.New("scenario ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ScenarioID{}, errors.New("scenario ID must be a valid UUID")
	}
	return ScenarioID{value: id}, nil
}

func (id ScenarioID) String() string              { return id.value }
func (id ScenarioID) Equals(other ScenarioID) bool { return id.value == other.value }
func (id ScenarioID) IsZero() bool                { return id.value == "" }

func (id ScenarioID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

func (id *ScenarioID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalIDString(data, "ScenarioID")
	if err != nil {
		return err
	}
	id.value = v
	return nil
}

func marshalIDString(value string) ([]byte, error) {
	return []byte(`"` + value + `"`), nil
}

func unmarshalIDString(data []byte, kind string) (string, error) {
	if string(data) == "null" {
		return "", nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return "", errors.New(kind + " must be a string")
	}
	return string(data[1 : len(data)-1]), nil
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
