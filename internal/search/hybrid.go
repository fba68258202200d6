package search

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// searchHybrid runs literal, symbol, and semantic concurrently with a shared
// deadline and fuses them with RRF. A mode that errors or times out
// contributes nothing rather than failing the whole request — the errgroup
// branches capture their error locally instead of returning it, so
// g.Wait() never aborts the other branches early — a slow or failing mode
// degrades gracefully instead of failing the whole request.
func (s *Searcher) searchHybrid(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var (
		literalResults, symbolResults, semanticResults []*Result
		literalErr, symbolErr                          error
		semanticDegraded                               bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := s.literalMatches(gctx, req, false)
		if err == nil && len(results) == 0 && s.FuzzyEnabled {
			results, err = s.literalMatches(gctx, req, true)
		}
		literalResults, literalErr = results, err
		return nil
	})

	g.Go(func() error {
		results, err := s.symbolMatches(gctx, req)
		symbolResults, symbolErr = results, err
		return nil
	})

	g.Go(func() error {
		results, degraded, err := s.semanticMatches(gctx, req)
		if err != nil {
			return nil
		}
		semanticResults, semanticDegraded = results, degraded
		return nil
	})

	_ = g.Wait()

	rankings := make(map[Mode][]Ranked)
	var degraded []string

	if literalErr == nil {
		rankings[ModeLiteral] = RankResults(literalResults)
	} else {
		degraded = append(degraded, string(ModeLiteral))
	}

	if symbolErr == nil {
		rankings[ModeSymbol] = RankResults(symbolResults)
	} else {
		degraded = append(degraded, string(ModeSymbol))
	}

	if !semanticDegraded {
		rankings[ModeSemantic] = RankResults(semanticResults)
	} else {
		degraded = append(degraded, string(ModeSemantic))
	}

	fused := NewRRFFusion().Fuse(rankings)

	return &SearchResponse{
		Results:      paginate(fused, req.Limit, req.Offset),
		TotalMatches: len(fused),
		Degraded:     degraded,
	}, nil
}
