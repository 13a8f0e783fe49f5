package config

import "errors"

var (
	errInvalidTitleLimits  = errors.New("domain config: invalid title length limits")
	errInvalidWeightLimits = errors.New("domain config: min edge weight exceeds max")
	errInvalidTolerance    = errors.New("domain config: comparison tolerance cannot be negative")
)
