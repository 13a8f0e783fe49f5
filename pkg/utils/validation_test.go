package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name        string `validate:"required,max=10"`
	Description string `validate:"max=20"`
	Kind        string `validate:"omitempty,oneof=alpha beta"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Name: "scenario-a", Kind: "alpha"})
	assert.NoError(t, err)
}

func TestValidateStruct_RequiredField(t *testing.T) {
	err := ValidateStruct(&sampleRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestValidateStruct_MaxLength(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Name: "far-too-long-a-name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must be at most 10")
}

func TestValidateStruct_OneOf(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Name: "ok", Kind: "gamma"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind must be one of: alpha beta")
}

func TestValidateStruct_JoinsMultipleFailures(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Description: "this description is well past the limit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "description must be at most 20")
}

func TestRFC3339RoundTrip(t *testing.T) {
	parsed, err := ParseRFC3339(NowRFC3339())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 2*time.Second)

	_, err = ParseRFC3339("not-a-timestamp")
	assert.Error(t, err)
}
