package events

import (
	"time"

	"causemap/domain/core/valueobjects"
)

// SourceService is the EventBridge source attribute for events emitted
// by this service.
const SourceService = "causemap.backend"

// DomainEvent is the base interface for all domain events. Events
// describe something that has already happened.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBaseEvent(aggregateID, eventType string, ts time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   ts,
		Version:     1,
	}
}

// Graph events

// GraphCreated is raised when a new graph is created.
type GraphCreated struct {
	BaseEvent
	GraphID valueobjects.GraphID `json:"graph_id"`
	UserID  string               `json:"user_id"`
	Name    string               `json:"name"`
}

func NewGraphCreated(graphID valueobjects.GraphID, userID, name string, ts time.Time) GraphCreated {
	return GraphCreated{
		BaseEvent: newBaseEvent(graphID.String(), "graph.created", ts),
		GraphID:   graphID,
		UserID:    userID,
		Name:      name,
	}
}

// NodeAdded is raised when a node joins a graph.
type NodeAdded struct {
	BaseEvent
	GraphID  valueobjects.GraphID `json:"graph_id"`
	NodeID   valueobjects.NodeID  `json:"node_id"`
	NodeType string               `json:"node_type"`
	Title    string               `json:"title"`
}

func NewNodeAdded(graphID valueobjects.GraphID, nodeID valueobjects.NodeID, nodeType, title string, ts time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: newBaseEvent(graphID.String(), "graph.node_added", ts),
		GraphID:   graphID,
		NodeID:    nodeID,
		NodeType:  nodeType,
		Title:     title,
	}
}

// NodeUpdated is raised when a node's decision-relevant fields change.
type NodeUpdated struct {
	BaseEvent
	GraphID valueobjects.GraphID `json:"graph_id"`
	NodeID  valueobjects.NodeID  `json:"node_id"`
}

func NewNodeUpdated(graphID valueobjects.GraphID, nodeID valueobjects.NodeID, ts time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent: newBaseEvent(graphID.String(), "graph.node_updated", ts),
		GraphID:   graphID,
		NodeID:    nodeID,
	}
}

// NodeRemoved is raised when a node and its incident edges are removed.
type NodeRemoved struct {
	BaseEvent
	GraphID      valueobjects.GraphID  `json:"graph_id"`
	NodeID       valueobjects.NodeID   `json:"node_id"`
	RemovedEdges []valueobjects.EdgeID `json:"removed_edges"`
}

func NewNodeRemoved(graphID valueobjects.GraphID, nodeID valueobjects.NodeID, removedEdges []valueobjects.EdgeID, ts time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent:    newBaseEvent(graphID.String(), "graph.node_removed", ts),
		GraphID:      graphID,
		NodeID:       nodeID,
		RemovedEdges: removedEdges,
	}
}

// Edge events

// EdgeConnected is raised when two nodes are connected.
type EdgeConnected struct {
	BaseEvent
	GraphID valueobjects.GraphID `json:"graph_id"`
	EdgeID  valueobjects.EdgeID  `json:"edge_id"`
	FromID  valueobjects.NodeID  `json:"from_id"`
	ToID    valueobjects.NodeID  `json:"to_id"`
	Kind    string               `json:"kind"`
}

func NewEdgeConnected(graphID valueobjects.GraphID, edgeID valueobjects.EdgeID, from, to valueobjects.NodeID, kind string, ts time.Time) EdgeConnected {
	return EdgeConnected{
		BaseEvent: newBaseEvent(graphID.String(), "graph.edge_connected", ts),
		GraphID:   graphID,
		EdgeID:    edgeID,
		FromID:    from,
		ToID:      to,
		Kind:      kind,
	}
}

// EdgeUpdated is raised when an edge's endpoints, kind, or weight change.
type EdgeUpdated struct {
	BaseEvent
	GraphID valueobjects.GraphID `json:"graph_id"`
	EdgeID  valueobjects.EdgeID  `json:"edge_id"`
}

func NewEdgeUpdated(graphID valueobjects.GraphID, edgeID valueobjects.EdgeID, ts time.Time) EdgeUpdated {
	return EdgeUpdated{
		BaseEvent: newBaseEvent(graphID.String(), "graph.edge_updated", ts),
		GraphID:   graphID,
		EdgeID:    edgeID,
	}
}

// EdgeRemoved is raised when an edge is removed.
type EdgeRemoved struct {
	BaseEvent
	GraphID valueobjects.GraphID `json:"graph_id"`
	EdgeID  valueobjects.EdgeID  `json:"edge_id"`
}

func NewEdgeRemoved(graphID valueobjects.GraphID, edgeID valueobjects.EdgeID, ts time.Time) EdgeRemoved {
	return EdgeRemoved{
		BaseEvent: newBaseEvent(graphID.String(), "graph.edge_removed", ts),
		GraphID:   graphID,
		EdgeID:    edgeID,
	}
}

// Scenario events

// ScenarioCaptured is raised when a named snapshot of a graph is taken.
type ScenarioCaptured struct {
	BaseEvent
	ScenarioID valueobjects.ScenarioID `json:"scenario_id"`
	GraphID    valueobjects.GraphID    `json:"graph_id"`
	Name       string                  `json:"name"`
	Checksum   string                  `json:"checksum"`
}

func NewScenarioCaptured(scenarioID valueobjects.ScenarioID, graphID valueobjects.GraphID, name, checksum string, ts time.Time) ScenarioCaptured {
	return ScenarioCaptured{
		BaseEvent:  newBaseEvent(scenarioID.String(), "scenario.captured", ts),
		ScenarioID: scenarioID,
		GraphID:    graphID,
		Name:       name,
		Checksum:   checksum,
	}
}

// ScenarioDeleted is raised when a snapshot is deleted.
type ScenarioDeleted struct {
	BaseEvent
	ScenarioID valueobjects.ScenarioID `json:"scenario_id"`
	GraphID    valueobjects.GraphID    `json:"graph_id"`
}

func NewScenarioDeleted(scenarioID valueobjects.ScenarioID, graphID valueobjects.GraphID, ts time.Time) ScenarioDeleted {
	return ScenarioDeleted{
		BaseEvent:  newBaseEvent(scenarioID.String(), "scenario.deleted", ts),
		ScenarioID: scenarioID,
		GraphID:    graphID,
	}
}
