package embed

import "context"

// BoundedEmbedder limits the number of concurrent inference calls made
// against the wrapped embedder. Callers beyond the limit block until a slot
// frees up rather than having their request dropped, so indexing backpressure
// shows up as latency, not lost chunks.
type BoundedEmbedder struct {
	inner Embedder
	sem   chan struct{}
}

var _ Embedder = (*BoundedEmbedder)(nil)

// NewBoundedEmbedder wraps inner so at most maxConcurrent calls to Embed or
// EmbedBatch run at once.
func NewBoundedEmbedder(inner Embedder, maxConcurrent int) *BoundedEmbedder {
	if maxConcurrent <= 0 {
		maxConcurrent = MaxConcurrentEmbeds
	}
	return &BoundedEmbedder{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (b *BoundedEmbedder) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *BoundedEmbedder) release() {
	<-b.sem
}

func (b *BoundedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.inner.Embed(ctx, text)
}

func (b *BoundedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.inner.EmbedBatch(ctx, texts)
}

func (b *BoundedEmbedder) Dimensions() int {
	return b.inner.Dimensions()
}

func (b *BoundedEmbedder) ModelName() string {
	return b.inner.ModelName()
}

func (b *BoundedEmbedder) Available(ctx context.Context) bool {
	return b.inner.Available(ctx)
}

func (b *BoundedEmbedder) Close() error {
	return b.inner.Close()
}
