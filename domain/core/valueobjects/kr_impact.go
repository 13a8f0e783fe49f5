package valueobjects

import (
	"errors"
	"math"
)

// KRImpact records a node's projected effect on a key result: the shift
// of the P50 estimate and the author's confidence in that shift.
type KRImpact struct {
	KRID       string  `json:"krId"`
	DeltaP50   float64 `json:"deltaP50"`
	Confidence float64 `json:"confidence"`
}

// NewKRImpact creates a validated KRImpact. Confidence is a probability
// in [0, 1].
func NewKRImpact(krID string, deltaP50, confidence float64) (KRImpact, error) {
	if krID == "" {
		return KRImpact{}, errors.New("KR id cannot be empty")
	}
	if math.IsNaN(deltaP50) || math.IsInf(deltaP50, 0) {
		return KRImpact{}, errors.New("deltaP50 must be finite")
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return KRImpact{}, errors.New("confidence must be within [0, 1]")
	}
	return KRImpact{KRID: krID, DeltaP50: deltaP50, Confidence: confidence}, nil
}

// EqualsWithin compares two impacts, tolerating numeric drift up to eps
// on the float fields. eps of zero means exact equality.
func (k KRImpact) EqualsWithin(other KRImpact, eps float64) bool {
	if k.KRID != other.KRID {
		return false
	}
	return floatEqualsWithin(k.DeltaP50, other.DeltaP50, eps) &&
		floatEqualsWithin(k.Confidence, other.Confidence, eps)
}

// ImpactsEqualWithin compares two ordered impact sequences. Order is
// significant: the canvas preserves author ordering and a reorder is a
// meaningful edit.
func ImpactsEqualWithin(a, b []KRImpact, eps float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].EqualsWithin(b[i], eps) {
			return false
		}
	}
	return true
}

func floatEqualsWithin(a, b, eps float64) bool {
	if eps <= 0 {
		return a == b
	}
	return math.Abs(a-b) <= eps
}
