package embed

import (
	"context"
	"sync/atomic"
)

// mockEmbedder is a test double that counts calls and returns a fixed vector.
type mockEmbedder struct {
	embedCalls     atomic.Int64
	batchCalls     atomic.Int64
	dims           int
	modelName      string
	returnedVector []float32
}

func newMockEmbedder(dims int) *mockEmbedder {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return &mockEmbedder{dims: dims, modelName: "mock-model", returnedVector: vec}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	return m.returnedVector, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.returnedVector
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int                    { return m.dims }
func (m *mockEmbedder) ModelName() string                  { return m.modelName }
func (m *mockEmbedder) Available(ctx context.Context) bool { return true }
func (m *mockEmbedder) Close() error                       { return nil }
