package config

import "time"

// DomainConfig holds the configurable business rules and constraints of
// the decision-model domain.
type DomainConfig struct {
	// Graph constraints
	MaxNodesPerGraph int
	MaxEdgesPerGraph int
	DefaultGraphName string

	// Node constraints
	MaxEdgesPerNode   int
	MaxImpactsPerNode int
	MaxTitleLength    int
	MinTitleLength    int

	// Edge constraints
	MaxEdgeWeight     float64
	MinEdgeWeight     float64
	DefaultEdgeWeight float64

	// Comparison settings. Tolerance is the absolute slack applied when
	// comparing edge weights and KR impact floats across snapshots.
	ComparisonTolerance float64

	// Scenario constraints
	MaxScenariosPerGraph  int
	MaxScenarioNameLength int

	// Time constraints
	SessionTimeout    time.Duration
	ConnectionTimeout time.Duration

	// Validation settings
	AllowSelfConnections bool
	AllowDuplicateEdges  bool

	// Feature flags
	EnableRealTimeSync      bool
	EnableComparisonCaching bool
}

// DefaultDomainConfig returns the default domain configuration.
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerGraph: 10000,
		MaxEdgesPerGraph: 50000,
		DefaultGraphName: "Untitled Map",

		MaxEdgesPerNode:   100,
		MaxImpactsPerNode: 20,
		MaxTitleLength:    500,
		MinTitleLength:    1,

		MaxEdgeWeight:     1.0,
		MinEdgeWeight:     0.0,
		DefaultEdgeWeight: 0.5,

		ComparisonTolerance: 0,

		MaxScenariosPerGraph:  200,
		MaxScenarioNameLength: 200,

		SessionTimeout:    24 * time.Hour,
		ConnectionTimeout: 30 * time.Second,

		AllowSelfConnections: false,
		AllowDuplicateEdges:  true,

		EnableRealTimeSync:      true,
		EnableComparisonCaching: true,
	}
}

// ProductionDomainConfig returns production-specific configuration.
func ProductionDomainConfig() *DomainConfig {
	cfg := DefaultDomainConfig()

	cfg.MaxNodesPerGraph = 5000
	cfg.MaxEdgesPerGraph = 25000
	cfg.MaxEdgesPerNode = 50
	cfg.MaxScenariosPerGraph = 100

	return cfg
}

// DevelopmentDomainConfig returns development-specific configuration.
func DevelopmentDomainConfig() *DomainConfig {
	cfg := DefaultDomainConfig()

	cfg.MaxNodesPerGraph = 100000
	cfg.MaxEdgesPerGraph = 500000
	cfg.AllowSelfConnections = true

	return cfg
}

// LoadDomainConfig selects the configuration for an environment.
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks internal consistency of the limits.
func (c *DomainConfig) Validate() error {
	if c.MinTitleLength < 0 || c.MaxTitleLength < c.MinTitleLength {
		return errInvalidTitleLimits
	}
	if c.MinEdgeWeight > c.MaxEdgeWeight {
		return errInvalidWeightLimits
	}
	if c.ComparisonTolerance < 0 {
		return errInvalidTolerance
	}
	return nil
}
