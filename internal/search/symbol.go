package search

import (
	"context"
	"sort"
)

func (s *Searcher) searchSymbol(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, err := s.symbolMatches(ctx, req)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:      paginate(results, req.Limit, req.Offset),
		TotalMatches: len(results),
	}, nil
}

// symbolMatches returns every matching symbol span, sorted, without
// pagination — used directly by hybrid mode before fusion.
func (s *Searcher) symbolMatches(ctx context.Context, req SearchRequest) ([]*Result, error) {
	hits, err := s.MetadataStore.SearchSymbols(ctx, req.Query, req.Limit*OversampleFactor)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, hit := range hits {
		if len(req.FilePatterns) > 0 && !matchesAnyPattern(hit.FilePath, req.FilePatterns) {
			continue
		}

		meta, err := s.MetadataStore.GetFile(ctx, hit.FilePath)
		if err != nil {
			return nil, err
		}
		var repository string
		if meta != nil {
			repository = meta.Repository
		}
		if len(req.Repositories) > 0 && !repositoryAllowed(repository, req.Repositories) {
			continue
		}

		chunks, err := s.MetadataStore.GetChunksByFile(ctx, hit.FilePath)
		if err != nil {
			return nil, err
		}
		fl := newFileLines(chunks)
		content, _ := fl.line(hit.StartLine)
		before, after := fl.context(hit.StartLine, ContextLines)

		results = append(results, &Result{
			Path:          hit.FilePath,
			Repository:    repository,
			LineNumber:    hit.StartLine,
			Content:       content,
			ContextBefore: before,
			ContextAfter:  after,
			Score:         1.0,
			MatchType:     MatchSymbol,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].LineNumber < results[j].LineNumber
	})

	return results, nil
}

func repositoryAllowed(repository string, allowed []string) bool {
	for _, a := range allowed {
		if a == repository {
			return true
		}
	}
	return false
}
