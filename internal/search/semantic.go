package search

import (
	"context"

	"github.com/rune-engine/rune/internal/store"
)

func (s *Searcher) searchSemantic(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, degraded, err := s.semanticMatches(ctx, req)
	if err != nil {
		return nil, err
	}
	if degraded {
		return &SearchResponse{Results: []*Result{}, Degraded: []string{string(ModeSemantic)}}, nil
	}

	return &SearchResponse{
		Results:      paginate(results, req.Limit, req.Offset),
		TotalMatches: len(results),
	}, nil
}

// semanticMatches embeds the query and searches the vector store, returning
// degraded=true when the vector store is unreachable so callers (hybrid mode
// included) can drop this mode without failing the whole request.
func (s *Searcher) semanticMatches(ctx context.Context, req SearchRequest) (results []*Result, degraded bool, err error) {
	vector, embedErr := s.Embedder.Embed(ctx, req.Query)
	if embedErr != nil {
		return nil, true, nil
	}

	k := req.Limit * OversampleFactor
	if k < req.Limit+1 {
		k = req.Limit + 1
	}

	var filter store.VectorFilter
	if len(req.Repositories) == 1 {
		filter.Repository = req.Repositories[0]
	}

	hits, searchErr := s.VectorStore.Search(ctx, s.WorkspaceRoot, vector, k, filter)
	if searchErr != nil {
		return nil, true, nil
	}

	seen := make(map[string]bool)
	out := make([]*Result, 0, len(hits))
	for _, hit := range hits {
		if len(req.Repositories) > 1 && !repositoryAllowed(hit.Repository, req.Repositories) {
			continue
		}
		if len(req.FilePatterns) > 0 && !matchesAnyPattern(hit.FilePath, req.FilePatterns) {
			continue
		}

		key := hit.FilePath + "\x00" + itoa(hit.StartLine)
		if seen[key] {
			continue
		}
		seen[key] = true

		result := &Result{
			Path:       hit.FilePath,
			Repository: hit.Repository,
			LineNumber: hit.StartLine,
			Content:    hit.Preview,
			Score:      hit.Score,
			MatchType:  MatchSemantic,
		}
		if chunks, chunkErr := s.MetadataStore.GetChunksByFile(ctx, hit.FilePath); chunkErr == nil {
			fl := newFileLines(chunks)
			if content, ok := fl.line(hit.StartLine); ok {
				result.Content = content
			}
			result.ContextBefore, result.ContextAfter = fl.context(hit.StartLine, ContextLines)
		}

		out = append(out, result)
	}

	return out, false, nil
}
