package search

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/rune-engine/rune/internal/rerrors"
)

// regexCache compiles each pattern once. Go's regexp package is RE2-based
// (linear-time, no backtracking), which is the one place this engine
// deliberately stays on the standard library: spec requires a
// non-backtracking engine, and any PCRE-style third-party package would
// reintroduce catastrophic backtracking.
type regexCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{cache: make(map[string]*regexp.Regexp)}
}

func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.cache[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, rerrors.RegexError("invalid regex pattern", err)
	}

	c.mu.Lock()
	c.cache[pattern] = re
	c.mu.Unlock()
	return re, nil
}

func (s *Searcher) searchRegex(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	re, err := s.regexCache.compile(req.Query)
	if err != nil {
		return nil, err
	}

	paths, err := s.candidatePaths(ctx, req)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		chunks, err := s.MetadataStore.GetChunksByFile(ctx, path)
		if err != nil {
			return nil, err
		}
		fl := newFileLines(chunks)

		var repository string
		if meta, err := s.MetadataStore.GetFile(ctx, path); err == nil && meta != nil {
			repository = meta.Repository
		}

		for lineNo, line := range fl.lines {
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			before, after := fl.context(lineNo, ContextLines)
			results = append(results, &Result{
				Path:          path,
				Repository:    repository,
				LineNumber:    lineNo,
				Column:        loc[0],
				Content:       line,
				ContextBefore: before,
				ContextAfter:  after,
				Score:         1.0,
				MatchType:     MatchExact,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].LineNumber < results[j].LineNumber
	})

	return &SearchResponse{
		Results:      paginate(results, req.Limit, req.Offset),
		TotalMatches: len(results),
	}, nil
}
