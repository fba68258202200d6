package search

import "sort"

// DefaultRRFConstant is the k in 1/(k+rank) per spec's hybrid fusion formula.
const DefaultRRFConstant = 60

// Ranked is one mode's ranked hit list entry: a Result plus its 1-based rank
// within that mode's result list.
type Ranked struct {
	Result *Result
	Rank   int
}

// RRFFusion combines ranked lists from multiple search modes into a single
// fused ranking via Reciprocal Rank Fusion across an arbitrary number of
// contributing modes.
type RRFFusion struct {
	K int
}

// NewRRFFusion returns an RRFFusion using DefaultRRFConstant.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// fusedEntry accumulates a document's score and per-mode contribution while
// fusing.
type fusedEntry struct {
	result     *Result
	score      float64
	modeHits   int
	bestScore  float64
	bestResult *Result
}

// Fuse combines rankings — one ranked list per contributing mode — into a
// single descending-score slice. A mode whose list does not contain a
// document adds nothing to that document's score.
//
// Deduplication is by (path, line_number): when the same key appears in
// multiple modes (or multiple times within a mode), the highest-scoring
// occurrence's Result fields are kept, but the RRF score accumulates across
// all contributing ranks.
func (f *RRFFusion) Fuse(rankings map[Mode][]Ranked) []*Result {
	k := f.K
	if k <= 0 {
		k = DefaultRRFConstant
	}

	entries := make(map[string]*fusedEntry)
	order := make([]string, 0)

	for _, list := range rankings {
		for _, ranked := range list {
			key := ranked.Result.key()
			e, ok := entries[key]
			if !ok {
				e = &fusedEntry{result: ranked.Result}
				entries[key] = e
				order = append(order, key)
			}
			e.score += 1.0 / float64(k+ranked.Rank)
			e.modeHits++
			if ranked.Result.Score > e.bestScore {
				e.bestScore = ranked.Result.Score
				e.bestResult = ranked.Result
			}
		}
	}

	fused := make([]*Result, 0, len(order))
	for _, key := range order {
		e := entries[key]
		r := e.bestResult
		if r == nil {
			r = e.result
		}
		out := *r
		out.Score = e.score
		out.MatchType = MatchHybrid
		fused = append(fused, &out)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if fused[i].Path != fused[j].Path {
			return fused[i].Path < fused[j].Path
		}
		return fused[i].LineNumber < fused[j].LineNumber
	})

	normalize(fused)
	return fused
}

// normalize scales fused scores into [0,1] using the top score as reference,
// so scores stay comparable across queries.
func normalize(results []*Result) {
	if len(results) == 0 {
		return
	}
	max := results[0].Score
	if max <= 0 {
		return
	}
	for _, r := range results {
		r.Score = r.Score / max
	}
}

// RankResults converts a mode's ordered Result list into Ranked entries
// (1-based rank by position).
func RankResults(results []*Result) []Ranked {
	ranked := make([]Ranked, len(results))
	for i, r := range results {
		ranked[i] = Ranked{Result: r, Rank: i + 1}
	}
	return ranked
}
