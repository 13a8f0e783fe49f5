package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "causemap", cfg.DynamoDBTable)
	assert.Equal(t, "causemap-events", cfg.EventBusName)
	assert.Equal(t, "causemap-outbox", cfg.OutboxTable)
	assert.Equal(t, "causemap-backend", cfg.JWTIssuer)
	assert.Zero(t, cfg.ComparisonTolerance)
	assert.Equal(t, 300, cfg.ComparisonCacheTTL)
	assert.True(t, cfg.EnableCORS)
	assert.False(t, cfg.EnableMetrics)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_TableNameFallback(t *testing.T) {
	t.Setenv("DYNAMODB_TABLE", "legacy-table")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "legacy-table", cfg.DynamoDBTable)

	// TABLE_NAME wins over the legacy variable.
	t.Setenv("TABLE_NAME", "new-table")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "new-table", cfg.DynamoDBTable)
}

func TestLoadConfig_OverridesFromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("COMPARISON_TOLERANCE", "0.001")
	t.Setenv("COMPARISON_CACHE_TTL", "60")
	t.Setenv("ENABLE_METRICS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, 0.001, cfg.ComparisonTolerance)
	assert.Equal(t, 60, cfg.ComparisonCacheTTL)
	assert.True(t, cfg.EnableMetrics)
}

func TestLoadConfig_NegativeToleranceRejected(t *testing.T) {
	t.Setenv("COMPARISON_TOLERANCE", "-0.5")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate_ProductionRequirements(t *testing.T) {
	base := Config{
		Environment:   "production",
		JWTSecret:     "secret",
		DynamoDBTable: "causemap",
		EventBusName:  "causemap-events",
	}
	assert.NoError(t, base.Validate())

	noSecret := base
	noSecret.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	noTable := base
	noTable.DynamoDBTable = ""
	assert.Error(t, noTable.Validate())

	noBus := base
	noBus.EventBusName = ""
	assert.Error(t, noBus.Validate())

	// Development is permissive about all three.
	dev := Config{Environment: "development"}
	assert.NoError(t, dev.Validate())
}

func TestGetEnvBool_AcceptedSpellings(t *testing.T) {
	for _, v := range []string{"true", "1", "yes"} {
		t.Setenv("FLAG_UNDER_TEST", v)
		assert.True(t, getEnvBool("FLAG_UNDER_TEST", false), v)
	}
	for _, v := range []string{"false", "0", "no", "TRUE"} {
		t.Setenv("FLAG_UNDER_TEST", v)
		assert.False(t, getEnvBool("FLAG_UNDER_TEST", true), v)
	}
}

func TestGetEnvInt_MalformedFallsBack(t *testing.T) {
	t.Setenv("COUNT_UNDER_TEST", "not-a-number")
	assert.Equal(t, 42, getEnvInt("COUNT_UNDER_TEST", 42))
}
