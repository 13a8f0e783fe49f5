package validators

import (
	"math"
	"strings"
	"unicode/utf8"

	"causemap/domain/core/entities"
	"causemap/domain/core/valueobjects"
	"causemap/pkg/errors"
)

// GraphValidator validates raw canvas input before it reaches the
// aggregate. The aggregate enforces its own invariants; this layer
// exists to turn sloppy client payloads into field-level errors the
// canvas can render next to the offending control.
type GraphValidator struct {
	titleMinLength int
	titleMaxLength int
	maxImpacts     int
}

// NewGraphValidator creates a validator with default rules.
func NewGraphValidator() *GraphValidator {
	return &GraphValidator{
		titleMinLength: 1,
		titleMaxLength: 500,
		maxImpacts:     20,
	}
}

// ValidateNodeInput checks a raw node payload.
func (v *GraphValidator) ValidateNodeInput(nodeType, title string, impacts []valueobjects.KRImpact) error {
	validationErrors := errors.NewValidationErrors()

	if err := v.validateTitle(title); err != nil {
		addError(validationErrors, "title", err)
	}
	if _, err := entities.ParseNodeType(nodeType); err != nil {
		addError(validationErrors, "type", err)
	}
	if err := v.validateImpacts(impacts); err != nil {
		addError(validationErrors, "kr_impacts", err)
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// ValidateEdgeInput checks a raw edge payload.
func (v *GraphValidator) ValidateEdgeInput(from, to, kind string, weight *float64) error {
	validationErrors := errors.NewValidationErrors()

	if strings.TrimSpace(from) == "" {
		validationErrors.Add("from", "source node id is required")
	}
	if strings.TrimSpace(to) == "" {
		validationErrors.Add("to", "target node id is required")
	}
	if _, err := entities.ParseEdgeKind(kind); err != nil {
		addError(validationErrors, "kind", err)
	}
	if weight != nil {
		if math.IsNaN(*weight) || *weight < 0 || *weight > 1 {
			addError(validationErrors, "weight", errors.ErrEdgeWeightOutOfRange)
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// ValidateViewRect checks canvas placement input.
func (v *GraphValidator) ValidateViewRect(x, y, w, h float64) error {
	for _, f := range []float64{x, y, w, h} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.ErrInvalidViewRect
		}
	}
	if w < 0 || h < 0 {
		return errors.ErrInvalidViewRect
	}
	return nil
}

func (v *GraphValidator) validateTitle(title string) error {
	title = strings.TrimSpace(title)
	length := utf8.RuneCountInString(title)

	if length < v.titleMinLength {
		return errors.ErrNodeTitleRequired
	}
	if length > v.titleMaxLength {
		return errors.ErrNodeTitleTooLong
	}
	return nil
}

func (v *GraphValidator) validateImpacts(impacts []valueobjects.KRImpact) error {
	if len(impacts) > v.maxImpacts {
		return errors.ErrInvalidImpact
	}
	for _, imp := range impacts {
		if strings.TrimSpace(imp.KRID) == "" {
			return errors.ErrInvalidImpact
		}
		if math.IsNaN(imp.DeltaP50) || math.IsInf(imp.DeltaP50, 0) {
			return errors.ErrInvalidImpact
		}
		if math.IsNaN(imp.Confidence) || imp.Confidence < 0 || imp.Confidence > 1 {
			return errors.ErrInvalidImpact
		}
	}
	return nil
}

func addError(dst *errors.ValidationErrors, field string, err error) {
	if domainErr, ok := err.(*errors.DomainError); ok {
		dst.AddError(domainErr)
		return
	}
	dst.Add(field, err.Error())
}
