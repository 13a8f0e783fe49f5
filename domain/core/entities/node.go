package entities

import (
	"time"

	"causemap/domain/core/valueobjects"
	pkgerrors "causemap/pkg/errors"
)

// NodeType is the closed set of decision-model node kinds. The canvas
// has no free-form node types; anything outside this set is rejected at
// construction.
type NodeType string

const (
	NodeTypeProblem  NodeType = "Problem"
	NodeTypeOption   NodeType = "Option"
	NodeTypeOutcome  NodeType = "Outcome"
	NodeTypeAction   NodeType = "Action"
	NodeTypeRisk     NodeType = "Risk"
	NodeTypeFactor   NodeType = "Factor"
	NodeTypeDecision NodeType = "Decision"
	NodeTypeGoal     NodeType = "Goal"
)

// ParseNodeType validates a raw string against the closed set.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.IsValid() {
		return "", pkgerrors.ErrInvalidNodeType
	}
	return t, nil
}

// IsValid reports whether t is one of the supported node types.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeProblem, NodeTypeOption, NodeTypeOutcome, NodeTypeAction,
		NodeTypeRisk, NodeTypeFactor, NodeTypeDecision, NodeTypeGoal:
		return true
	default:
		return false
	}
}

func (t NodeType) String() string { return string(t) }

// Node is a single element of a decision map. Identity is the NodeID;
// the view rect is canvas placement only and carries no decision
// semantics.
type Node struct {
	id        valueobjects.NodeID
	nodeType  NodeType
	title     valueobjects.Title
	krImpacts []valueobjects.KRImpact
	viewRect  *valueobjects.ViewRect
	createdAt time.Time
	updatedAt time.Time
	version   int
}

// NewNode creates a node with full validation.
func NewNode(nodeType NodeType, title valueobjects.Title) (*Node, error) {
	if !nodeType.IsValid() {
		return nil, pkgerrors.ErrInvalidNodeType
	}
	if title.IsEmpty() {
		return nil, pkgerrors.ErrNodeTitleRequired
	}

	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID(),
		nodeType:  nodeType,
		title:     title,
		createdAt: now,
		updatedAt: now,
		version:   1,
	}, nil
}

// ReconstructNode rebuilds a node from repository data with preserved
// identity and timestamps. Validation is the repository's problem; a
// stored node is assumed well-formed.
func ReconstructNode(
	id valueobjects.NodeID,
	nodeType NodeType,
	title valueobjects.Title,
	krImpacts []valueobjects.KRImpact,
	viewRect *valueobjects.ViewRect,
	createdAt, updatedAt time.Time,
	version int,
) *Node {
	return &Node{
		id:        id,
		nodeType:  nodeType,
		title:     title,
		krImpacts: krImpacts,
		viewRect:  viewRect,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
	}
}

// Clone returns a deep copy of the node. Snapshots hold clones so that
// in-place updates to the live entity cannot reach captured state.
func (n *Node) Clone() *Node {
	return ReconstructNode(n.id, n.nodeType, n.title, n.KRImpacts(), n.ViewRect(), n.createdAt, n.updatedAt, n.version)
}

func (n *Node) ID() valueobjects.NodeID   { return n.id }
func (n *Node) Type() NodeType            { return n.nodeType }
func (n *Node) Title() valueobjects.Title { return n.title }
func (n *Node) CreatedAt() time.Time      { return n.createdAt }
func (n *Node) UpdatedAt() time.Time      { return n.updatedAt }
func (n *Node) Version() int              { return n.version }

// KRImpacts returns a defensive copy of the ordered impact list.
func (n *Node) KRImpacts() []valueobjects.KRImpact {
	if n.krImpacts == nil {
		return nil
	}
	out := make([]valueobjects.KRImpact, len(n.krImpacts))
	copy(out, n.krImpacts)
	return out
}

// ViewRect returns the canvas placement, or nil when the node has never
// been placed.
func (n *Node) ViewRect() *valueobjects.ViewRect {
	if n.viewRect == nil {
		return nil
	}
	r := *n.viewRect
	return &r
}

// UpdateTitle changes the display title.
func (n *Node) UpdateTitle(title valueobjects.Title) error {
	if title.IsEmpty() {
		return pkgerrors.ErrNodeTitleRequired
	}
	n.title = title
	n.touch()
	return nil
}

// UpdateType changes the node's decision-model type.
func (n *Node) UpdateType(nodeType NodeType) error {
	if !nodeType.IsValid() {
		return pkgerrors.ErrInvalidNodeType
	}
	n.nodeType = nodeType
	n.touch()
	return nil
}

// SetKRImpacts replaces the ordered impact list.
func (n *Node) SetKRImpacts(impacts []valueobjects.KRImpact) error {
	for _, imp := range impacts {
		if imp.KRID == "" {
			return pkgerrors.ErrInvalidImpact
		}
	}
	n.krImpacts = make([]valueobjects.KRImpact, len(impacts))
	copy(n.krImpacts, impacts)
	n.touch()
	return nil
}

// MoveTo updates canvas placement. Placement changes do not bump the
// structural version; only touch the update time.
func (n *Node) MoveTo(rect valueobjects.ViewRect) {
	n.viewRect = &rect
	n.updatedAt = time.Now()
}

func (n *Node) touch() {
	n.updatedAt = time.Now()
	n.version++
}
