// Package search implements the five query executors (literal, regex,
// symbol, semantic, hybrid) against the durable stores in internal/store,
// and the N-way Reciprocal Rank Fusion that combines them for hybrid mode.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Mode selects which executor(s) a search request runs.
type Mode string

const (
	ModeLiteral  Mode = "literal"
	ModeRegex    Mode = "regex"
	ModeSymbol   Mode = "symbol"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// MatchType classifies how a Result was produced.
type MatchType string

const (
	MatchExact    MatchType = "Exact"
	MatchFuzzy    MatchType = "Fuzzy"
	MatchSymbol   MatchType = "Symbol"
	MatchSemantic MatchType = "Semantic"
	MatchHybrid   MatchType = "Hybrid"
)

// SearchRequest is the input common to every executor.
type SearchRequest struct {
	Query        string
	Mode         Mode
	Repositories []string
	FilePatterns []string
	Limit        int
	Offset       int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Normalize applies request defaults in place: Limit clamped to
// [1, MaxLimit] (default DefaultLimit), Mode defaulted to hybrid.
func (r *SearchRequest) Normalize() {
	if r.Mode == "" {
		r.Mode = ModeHybrid
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
}

// Result is a single match returned by any executor.
type Result struct {
	Path          string
	Repository    string
	LineNumber    int
	Column        int
	Content       string
	ContextBefore []string
	ContextAfter  []string
	Score         float64
	MatchType     MatchType
}

// key identifies a Result for deduplication: (path, line_number) per spec's
// hybrid/regex/literal dedup rule, or (path, start_line) for semantic
// (LineNumber doubles as start_line there).
func (r *Result) key() string {
	return r.Path + "\x00" + itoa(r.LineNumber)
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

// SearchResponse is the Orchestrator-facing reply for a search operation.
type SearchResponse struct {
	Results      []*Result
	TotalMatches int
	SearchTimeMs int64
	// Degraded lists the modes that failed, timed out, or were skipped
	// (e.g. "semantic" when the vector store is unreachable). Empty when
	// every requested mode contributed.
	Degraded []string
}

// QueryFingerprint is the structural cache key: (normalized_query, mode,
// repository_filter, pattern_filter, limit, offset).
type QueryFingerprint struct {
	NormalizedQuery string
	Mode            Mode
	Repositories    []string
	FilePatterns    []string
	Limit           int
	Offset          int
}

// NewQueryFingerprint builds a fingerprint from a request, normalizing the
// query (trim + lowercase) and sorting filter slices so that equivalent
// requests in different filter order collide.
func NewQueryFingerprint(req SearchRequest) QueryFingerprint {
	repos := append([]string(nil), req.Repositories...)
	sort.Strings(repos)
	patterns := append([]string(nil), req.FilePatterns...)
	sort.Strings(patterns)

	return QueryFingerprint{
		NormalizedQuery: strings.ToLower(strings.TrimSpace(req.Query)),
		Mode:            req.Mode,
		Repositories:    repos,
		FilePatterns:    patterns,
		Limit:           req.Limit,
		Offset:          req.Offset,
	}
}

// Key returns a stable hash identifying this fingerprint, suitable as a map
// or LRU cache key.
func (f QueryFingerprint) Key() string {
	h := sha256.New()
	_, _ = h.Write([]byte(f.NormalizedQuery))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(f.Mode))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.Join(f.Repositories, ",")))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.Join(f.FilePatterns, ",")))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(itoa(f.Limit)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(itoa(f.Offset)))
	return hex.EncodeToString(h.Sum(nil))
}

// AppliesToRepository reports whether a cache entry for this fingerprint
// must be invalidated when the named repository changes: true when the
// fingerprint has no repository filter (applies to all) or the repository
// is in the filter list.
func (f QueryFingerprint) AppliesToRepository(repository string) bool {
	if len(f.Repositories) == 0 {
		return true
	}
	for _, r := range f.Repositories {
		if r == repository {
			return true
		}
	}
	return false
}
