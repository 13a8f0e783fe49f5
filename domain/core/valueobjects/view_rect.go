package valueobjects

import (
	"errors"
	"math"
)

// ViewRect is the canvas placement of a node: position plus extent.
// It is presentation state only and never participates in structural
// comparison of graphs.
type ViewRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// NewViewRect creates a validated ViewRect.
func NewViewRect(x, y, w, h float64) (ViewRect, error) {
	for _, v := range []float64{x, y, w, h} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ViewRect{}, errors.New("view rect coordinates must be finite")
		}
	}
	if w < 0 || h < 0 {
		return ViewRect{}, errors.New("view rect extent cannot be negative")
	}
	return ViewRect{X: x, Y: y, W: w, H: h}, nil
}

// Equals compares two rects within a small epsilon to absorb float noise
// introduced by canvas drag operations.
func (r ViewRect) Equals(other ViewRect) bool {
	const epsilon = 1e-9
	return math.Abs(r.X-other.X) < epsilon &&
		math.Abs(r.Y-other.Y) < epsilon &&
		math.Abs(r.W-other.W) < epsilon &&
		math.Abs(r.H-other.H) < epsilon
}

// Translate returns a copy moved by (dx, dy).
func (r ViewRect) Translate(dx, dy float64) ViewRect {
	return ViewRect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}
