package search

import (
	"context"

	"github.com/rune-engine/rune/internal/embed"
	"github.com/rune-engine/rune/internal/store"
)

// ContextLines is N in spec's "up to N lines before/after" context
// enrichment rule.
const ContextLines = 2

// OversampleFactor is the multiplier applied to limit when querying the
// vector store, so post-filtering/dedup still leaves enough candidates.
const OversampleFactor = 2

// Searcher holds the store/embedder handles shared by every executor and
// dispatches a SearchRequest to the mode(s) it names.
type Searcher struct {
	TextIndex     store.TextIndex
	VectorStore   store.VectorStoreClient
	MetadataStore store.MetadataStore
	Embedder      embed.Embedder
	WorkspaceRoot string
	WorkspaceID   string

	FuzzyEnabled     bool
	FuzzyMaxResults  int
	FuzzyMaxDistance int
	FuzzyThreshold   float64

	regexCache *regexCache
}

// NewSearcher builds a Searcher over the given component handles.
func NewSearcher(textIndex store.TextIndex, vectorStore store.VectorStoreClient, metadataStore store.MetadataStore, embedder embed.Embedder, workspaceRoot, workspaceID string) *Searcher {
	return &Searcher{
		TextIndex:        textIndex,
		VectorStore:      vectorStore,
		MetadataStore:    metadataStore,
		Embedder:         embedder,
		WorkspaceRoot:    workspaceRoot,
		WorkspaceID:      workspaceID,
		FuzzyEnabled:     true,
		FuzzyMaxDistance: 2,
		FuzzyThreshold:   0.75,
		regexCache:       newRegexCache(),
	}
}

// Search dispatches req to the executor(s) named by req.Mode.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req.Normalize()

	switch req.Mode {
	case ModeLiteral:
		return s.searchLiteral(ctx, req)
	case ModeRegex:
		return s.searchRegex(ctx, req)
	case ModeSymbol:
		return s.searchSymbol(ctx, req)
	case ModeSemantic:
		return s.searchSemantic(ctx, req)
	default:
		return s.searchHybrid(ctx, req)
	}
}

// candidatePaths resolves the file set a request's filters admit: every
// path under the listed repositories, or every indexed path when no
// repository filter was given.
func (s *Searcher) candidatePaths(ctx context.Context, req SearchRequest) ([]string, error) {
	if len(req.Repositories) == 0 {
		files, err := s.MetadataStore.ListFiles(ctx, s.WorkspaceID)
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		return filterByPattern(paths, req.FilePatterns), nil
	}

	seen := make(map[string]bool)
	var paths []string
	for _, repo := range req.Repositories {
		repoPaths, err := s.MetadataStore.ListFilePathsUnder(ctx, repo)
		if err != nil {
			return nil, err
		}
		for _, p := range repoPaths {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return filterByPattern(paths, req.FilePatterns), nil
}

// paginate applies limit/offset to an already-sorted result slice.
func paginate(results []*Result, limit, offset int) []*Result {
	if offset >= len(results) {
		return []*Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
