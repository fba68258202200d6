package search

import (
	"context"
	"sort"
	"strings"
)

// tokenize splits a query into lowercase search tokens on whitespace.
func tokenize(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

func (s *Searcher) searchLiteral(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, err := s.literalMatches(ctx, req, false)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && s.FuzzyEnabled {
		results, err = s.literalMatches(ctx, req, true)
		if err != nil {
			return nil, err
		}
	}

	total := len(results)
	return &SearchResponse{
		Results:      paginate(results, req.Limit, req.Offset),
		TotalMatches: total,
	}, nil
}

// literalMatches finds candidate documents via the text index (conjunction
// of tokens, or fuzzy-expanded conjunction), then scans each candidate's
// stored chunk content line by line so every Result points at the specific
// matching line rather than just the document.
func (s *Searcher) literalMatches(ctx context.Context, req SearchRequest, fuzzy bool) ([]*Result, error) {
	tokens := tokenize(req.Query)
	if len(tokens) == 0 {
		return nil, nil
	}

	hits, err := s.TextIndex.SearchContent(ctx, tokens, fuzzy, s.FuzzyMaxDistance, s.FuzzyThreshold, req.Repositories, req.FilePatterns, req.Limit*OversampleFactor)
	if err != nil {
		return nil, err
	}

	matchType := MatchExact
	if fuzzy {
		matchType = MatchFuzzy
	}

	var results []*Result
	for _, hit := range hits {
		chunks, err := s.MetadataStore.GetChunksByFile(ctx, hit.Path)
		if err != nil {
			return nil, err
		}
		fl := newFileLines(chunks)

		// Exact search rescans for the literal tokens; fuzzy search rescans
		// for the dictionary term variants that actually satisfied the
		// fuzzy query (hit.MatchedTerms), since a near-miss like "databse"
		// -> "database" never appears verbatim in the line.
		lineTerms := tokensAsTerms(tokens)
		if fuzzy && hit.MatchedTerms != nil {
			lineTerms = hit.MatchedTerms
		}

		for lineNo, line := range fl.lines {
			lower := strings.ToLower(line)
			if !containsAllTerms(lower, tokens, lineTerms) {
				continue
			}
			before, after := fl.context(lineNo, ContextLines)
			results = append(results, &Result{
				Path:          hit.Path,
				Repository:    hit.Repository,
				LineNumber:    lineNo,
				Content:       line,
				ContextBefore: before,
				ContextAfter:  after,
				Score:         hit.Score,
				MatchType:     matchType,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].LineNumber < results[j].LineNumber
	})

	return results, nil
}

// tokensAsTerms is the identity mapping used for an exact-match rescan: each
// token must match itself, verbatim.
func tokensAsTerms(tokens []string) map[string][]string {
	out := make(map[string][]string, len(tokens))
	for _, t := range tokens {
		out[t] = []string{t}
	}
	return out
}

// containsAllTerms reports whether haystack contains, for every token, at
// least one of its acceptable terms (termsByToken[token]) — the token
// itself for an exact rescan, or its fuzzy-expanded variants otherwise.
func containsAllTerms(haystack string, tokens []string, termsByToken map[string][]string) bool {
	for _, t := range tokens {
		variants := termsByToken[t]
		if len(variants) == 0 {
			variants = []string{t}
		}
		matched := false
		for _, v := range variants {
			if strings.Contains(haystack, v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
