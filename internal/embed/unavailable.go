package embed

import (
	"context"

	"github.com/rune-engine/rune/internal/rerrors"
)

// UnavailableEmbedder is a null Embedder used when semantic search is
// disabled or the configured provider failed to start. Every call fails
// with a KindEmbed error rather than panicking on a nil Embedder, so
// Searcher.searchSemantic degrades that one mode instead of crashing.
type UnavailableEmbedder struct {
	reason string
}

var _ Embedder = (*UnavailableEmbedder)(nil)

// NewUnavailableEmbedder builds an UnavailableEmbedder reporting reason in
// every error it returns.
func NewUnavailableEmbedder(reason string) *UnavailableEmbedder {
	return &UnavailableEmbedder{reason: reason}
}

func (u *UnavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, rerrors.EmbedError("embedder unavailable: "+u.reason, nil)
}

func (u *UnavailableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, rerrors.EmbedError("embedder unavailable: "+u.reason, nil)
}

func (u *UnavailableEmbedder) Dimensions() int { return Dimensions }

func (u *UnavailableEmbedder) ModelName() string { return "unavailable" }

func (u *UnavailableEmbedder) Available(ctx context.Context) bool { return false }

func (u *UnavailableEmbedder) Close() error { return nil }
