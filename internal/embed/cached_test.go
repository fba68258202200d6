package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	var _ Embedder = cached
}

func TestCachedEmbedder_CacheHit_ReturnsWithoutCallingInner(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	v1, err := cached.Embed(ctx, "func main() {}")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "func main() {}")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
}

func TestCachedEmbedder_DifferentText_CallsInnerAgain(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	_, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.embedCalls.Load())
}

func TestCachedEmbedder_EmbedBatch_OnlyEmbedsUncached(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	_, err := cached.Embed(ctx, "cached-one")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"cached-one", "fresh-one", "fresh-two"})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestCachedEmbedder_Passthroughs(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)

	assert.Equal(t, 384, cached.Dimensions())
	assert.Equal(t, "mock-model", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.NoError(t, cached.Close())
}
