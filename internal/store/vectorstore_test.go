package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionName_DeterministicAndHex64(t *testing.T) {
	name := collectionName("/home/user/project")
	assert.True(t, len(name) == len("rune_")+64)
	assert.Equal(t, name, collectionName("/home/user/project"))
	assert.NotEqual(t, name, collectionName("/home/user/other"))
}

func TestPointID_DeterministicAndSpanSensitive(t *testing.T) {
	a := pointID("main.go", 1, 10)
	b := pointID("main.go", 1, 10)
	c := pointID("main.go", 1, 11)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestQuantizationConfig_NoneIsNil(t *testing.T) {
	assert.Nil(t, quantizationConfig(QuantizationNone))
	assert.NotNil(t, quantizationConfig(QuantizationScalar))
	assert.NotNil(t, quantizationConfig(QuantizationBinary))
	assert.NotNil(t, quantizationConfig(QuantizationAsymmetric))
}

func TestPayloadMap_RoundTrip(t *testing.T) {
	vp := &VectorPoint{FilePath: "a.go", Repository: "repo", StartLine: 1, EndLine: 5, Language: "go", Preview: "x"}
	payload := payloadMap(vp)
	assert.Equal(t, "a.go", payloadString(payload, "path"))
	assert.Equal(t, int64(1), payloadInt(payload, "start_line"))
	assert.Equal(t, int64(5), payloadInt(payload, "end_line"))
}

func TestNormalizeCosine_MapsToUnitRangeAndClamps(t *testing.T) {
	assert.InDelta(t, 0.0, normalizeCosine(-1), 0.0001)
	assert.InDelta(t, 0.5, normalizeCosine(0), 0.0001)
	assert.InDelta(t, 1.0, normalizeCosine(1), 0.0001)
	assert.Equal(t, 1.0, normalizeCosine(1.5))
	assert.Equal(t, 0.0, normalizeCosine(-1.5))
}

func TestQdrantVectorStore_SearchParams_OnlySetForAsymmetric(t *testing.T) {
	q := &QdrantVectorStore{quantization: map[string]QuantizationMode{
		"none":       QuantizationNone,
		"binary":     QuantizationBinary,
		"asymmetric": QuantizationAsymmetric,
	}}

	assert.Nil(t, q.searchParams("none"))
	assert.Nil(t, q.searchParams("binary"))

	params := q.searchParams("asymmetric")
	require.NotNil(t, params)
	require.NotNil(t, params.Quantization)
	assert.True(t, params.Quantization.GetRescore())
}
