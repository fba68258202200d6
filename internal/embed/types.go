// Package embed generates vector embeddings for chunk content and search
// queries via a local Ollama server, with caching and bounded concurrency
// layered on top.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize caps a single request's batch size to bound memory use.
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding HTTP call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts on transient
	// failure.
	DefaultMaxRetries = 3

	// Dimensions is the embedding width the vector store is configured for;
	// every embedder implementation must return vectors of this length.
	Dimensions = 384

	// MaxConcurrentEmbeds bounds the number of inference calls in flight at
	// once; callers beyond this block rather than being dropped.
	MaxConcurrentEmbeds = 4
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is reachable and its model is
	// loaded.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes v to unit length so cosine similarity reduces
// to a dot product.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
