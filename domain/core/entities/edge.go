package entities

import (
	"time"

	"causemap/domain/core/valueobjects"
	pkgerrors "causemap/pkg/errors"
)

// EdgeKind is the closed set of relations between decision-map nodes.
type EdgeKind string

const (
	EdgeKindSupports EdgeKind = "supports"
	EdgeKindCauses   EdgeKind = "causes"
	EdgeKindBlocks   EdgeKind = "blocks"
	EdgeKindInforms  EdgeKind = "informs"
)

// ParseEdgeKind validates a raw string against the closed set.
func ParseEdgeKind(s string) (EdgeKind, error) {
	k := EdgeKind(s)
	if !k.IsValid() {
		return "", pkgerrors.ErrInvalidEdgeKind
	}
	return k, nil
}

// IsValid reports whether k is one of the supported edge kinds.
func (k EdgeKind) IsValid() bool {
	switch k {
	case EdgeKindSupports, EdgeKindCauses, EdgeKindBlocks, EdgeKindInforms:
		return true
	default:
		return false
	}
}

func (k EdgeKind) String() string { return string(k) }

// Edge is a directed, kinded relation between two nodes. Identity is the
// EdgeID: retargeting an endpoint keeps the same edge, it does not create
// a new one.
type Edge struct {
	id        valueobjects.EdgeID
	from      valueobjects.NodeID
	to        valueobjects.NodeID
	kind      EdgeKind
	weight    *float64
	createdAt time.Time
	updatedAt time.Time
	version   int
}

// NewEdge creates an edge with full validation. weight is optional; when
// present it must fall in [0, 1].
func NewEdge(from, to valueobjects.NodeID, kind EdgeKind, weight *float64) (*Edge, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.ErrInvalidEdgeKind
	}
	if err := validateWeight(weight); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Edge{
		id:        valueobjects.NewEdgeID(),
		from:      from,
		to:        to,
		kind:      kind,
		weight:    copyWeight(weight),
		createdAt: now,
		updatedAt: now,
		version:   1,
	}, nil
}

// ReconstructEdge rebuilds an edge from repository data.
func ReconstructEdge(
	id valueobjects.EdgeID,
	from, to valueobjects.NodeID,
	kind EdgeKind,
	weight *float64,
	createdAt, updatedAt time.Time,
	version int,
) *Edge {
	return &Edge{
		id:        id,
		from:      from,
		to:        to,
		kind:      kind,
		weight:    copyWeight(weight),
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
	}
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	return ReconstructEdge(e.id, e.from, e.to, e.kind, e.weight, e.createdAt, e.updatedAt, e.version)
}

func (e *Edge) ID() valueobjects.EdgeID   { return e.id }
func (e *Edge) From() valueobjects.NodeID { return e.from }
func (e *Edge) To() valueobjects.NodeID   { return e.to }
func (e *Edge) Kind() EdgeKind            { return e.kind }
func (e *Edge) CreatedAt() time.Time      { return e.createdAt }
func (e *Edge) UpdatedAt() time.Time      { return e.updatedAt }
func (e *Edge) Version() int              { return e.version }

// Weight returns the optional strength/probability annotation.
func (e *Edge) Weight() *float64 { return copyWeight(e.weight) }

// Retarget moves one or both endpoints while keeping edge identity.
func (e *Edge) Retarget(from, to valueobjects.NodeID) error {
	if from.IsZero() || to.IsZero() {
		return pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	e.from = from
	e.to = to
	e.touch()
	return nil
}

// UpdateKind changes the relation kind.
func (e *Edge) UpdateKind(kind EdgeKind) error {
	if !kind.IsValid() {
		return pkgerrors.ErrInvalidEdgeKind
	}
	e.kind = kind
	e.touch()
	return nil
}

// UpdateWeight replaces the weight annotation; nil clears it.
func (e *Edge) UpdateWeight(weight *float64) error {
	if err := validateWeight(weight); err != nil {
		return err
	}
	e.weight = copyWeight(weight)
	e.touch()
	return nil
}

// References reports whether either endpoint is the given node.
func (e *Edge) References(id valueobjects.NodeID) bool {
	return e.from.Equals(id) || e.to.Equals(id)
}

func (e *Edge) touch() {
	e.updatedAt = time.Now()
	e.version++
}

func validateWeight(weight *float64) error {
	if weight == nil {
		return nil
	}
	if *weight < 0 || *weight > 1 {
		return pkgerrors.ErrEdgeWeightOutOfRange
	}
	return nil
}

func copyWeight(weight *float64) *float64 {
	if weight == nil {
		return nil
	}
	w := *weight
	return &w
}
