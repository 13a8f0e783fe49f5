package valueobjects

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKRImpact(t *testing.T) {
	imp, err := NewKRImpact("kr-1", 0.25, 0.8)
	require.NoError(t, err)
	assert.Equal(t, "kr-1", imp.KRID)
	assert.Equal(t, 0.25, imp.DeltaP50)
	assert.Equal(t, 0.8, imp.Confidence)

	_, err = NewKRImpact("", 0.1, 0.5)
	assert.Error(t, err)
	_, err = NewKRImpact("kr-1", math.NaN(), 0.5)
	assert.Error(t, err)
	_, err = NewKRImpact("kr-1", math.Inf(1), 0.5)
	assert.Error(t, err)
	_, err = NewKRImpact("kr-1", 0.1, -0.01)
	assert.Error(t, err)
	_, err = NewKRImpact("kr-1", 0.1, 1.01)
	assert.Error(t, err)
}

func TestKRImpact_EqualsWithin(t *testing.T) {
	a := KRImpact{KRID: "kr-1", DeltaP50: 0.2, Confidence: 0.8}

	assert.True(t, a.EqualsWithin(a, 0))
	assert.False(t, a.EqualsWithin(KRImpact{KRID: "kr-2", DeltaP50: 0.2, Confidence: 0.8}, 1))

	drifted := KRImpact{KRID: "kr-1", DeltaP50: 0.2000001, Confidence: 0.8}
	assert.False(t, a.EqualsWithin(drifted, 0))
	assert.True(t, a.EqualsWithin(drifted, 1e-6))
}

func TestImpactsEqualWithin(t *testing.T) {
	a := []KRImpact{
		{KRID: "kr-1", DeltaP50: 0.1, Confidence: 0.5},
		{KRID: "kr-2", DeltaP50: 0.2, Confidence: 0.6},
	}

	assert.True(t, ImpactsEqualWithin(a, a, 0))
	assert.True(t, ImpactsEqualWithin(nil, nil, 0))
	assert.False(t, ImpactsEqualWithin(a, a[:1], 0))

	// Order is significant.
	reversed := []KRImpact{a[1], a[0]}
	assert.False(t, ImpactsEqualWithin(a, reversed, 0))
}

func TestNewTitle(t *testing.T) {
	title, err := NewTitle("  Grow revenue  ")
	require.NoError(t, err)
	assert.Equal(t, "Grow revenue", title.String())
	assert.False(t, title.IsEmpty())

	_, err = NewTitle("")
	assert.Error(t, err)
	_, err = NewTitle("   ")
	assert.Error(t, err)
}

func TestNewTitle_MaxLength(t *testing.T) {
	long := make([]rune, 501)
	for i := range long {
		long[i] = 'x'
	}
	_, err := NewTitle(string(long))
	assert.Error(t, err)

	_, err = NewTitle(string(long[:500]))
	assert.NoError(t, err)
}

func TestTitle_Summary(t *testing.T) {
	title, err := NewTitle("A fairly long decision title")
	require.NoError(t, err)

	assert.Equal(t, "A fairly long decision title", title.Summary(100))
	assert.Equal(t, "A fairly l...", title.Summary(13))
	assert.Equal(t, "", title.Summary(0))
}

func TestNewViewRect(t *testing.T) {
	rect, err := NewViewRect(-10, 20, 120, 60)
	require.NoError(t, err)
	assert.Equal(t, -10.0, rect.X)
	assert.Equal(t, 60.0, rect.H)

	_, err = NewViewRect(math.NaN(), 0, 1, 1)
	assert.Error(t, err)
	_, err = NewViewRect(0, math.Inf(-1), 1, 1)
	assert.Error(t, err)
	_, err = NewViewRect(0, 0, -1, 1)
	assert.Error(t, err)
	_, err = NewViewRect(0, 0, 1, -1)
	assert.Error(t, err)
}

func TestViewRect_Translate(t *testing.T) {
	rect := ViewRect{X: 10, Y: 20, W: 100, H: 50}
	moved := rect.Translate(5, -5)

	assert.Equal(t, ViewRect{X: 15, Y: 15, W: 100, H: 50}, moved)
	assert.Equal(t, 10.0, rect.X)
}

func TestGraphID_UUIDRequired(t *testing.T) {
	id := NewGraphID()
	parsed, err := NewGraphIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(id))

	_, err = NewGraphIDFromString("")
	assert.Error(t, err)
	_, err = NewGraphIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestScenarioID_UUIDRequired(t *testing.T) {
	id := NewScenarioID()
	parsed, err := NewScenarioIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(id))

	_, err = NewScenarioIDFromString("banana")
	assert.Error(t, err)
}

func TestNodeID_AcceptsOpaqueStrings(t *testing.T) {
	// Node and edge ids from captured snapshots are opaque; only the
	// aggregate-level ids must be UUIDs.
	id, err := NewNodeIDFromString("n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", id.String())

	_, err = NewNodeIDFromString("")
	assert.Error(t, err)
}

func TestIDJSONRoundTrip(t *testing.T) {
	id := NewNodeID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded NodeID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(id))

	var zero NodeID
	require.NoError(t, json.Unmarshal([]byte("null"), &zero))
	assert.True(t, zero.IsZero())

	assert.Error(t, json.Unmarshal([]byte("42"), &decoded))
}
