package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveTextIndex is the inverted full-text index over one file per
// document: path (stored, not tokenized), repository (keyword), language
// (keyword), symbols (tokenized), content (tokenized, with positions for
// highlighting). Writers are single-threaded by the orchestrator; Bleve's
// index handle is safe for concurrent readers.
type BleveTextIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ TextIndex = (*BleveTextIndex)(nil)

// NewBleveTextIndex opens or creates the text index at path. An empty path
// opens an in-memory index, used by tests.
func NewBleveTextIndex(path string) (*BleveTextIndex, error) {
	m := buildIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open text index: %w", err)
	}

	return &BleveTextIndex{index: idx, path: path}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = "keyword"
	pathField.Store = true
	pathField.Index = true

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = true
	contentField.IncludeTermVectors = true

	symbolsField := bleve.NewTextFieldMapping()
	symbolsField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", pathField)
	doc.AddFieldMappingsAt("repository", keywordField)
	doc.AddFieldMappingsAt("language", keywordField)
	doc.AddFieldMappingsAt("content", contentField)
	doc.AddFieldMappingsAt("symbols", symbolsField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// bleveDoc is the stored representation of a TextDocument.
type bleveDoc struct {
	Path       string `json:"path"`
	Repository string `json:"repository"`
	Language   string `json:"language"`
	Content    string `json:"content"`
	Symbols    string `json:"symbols"`
}

// Upsert indexes or replaces the document for doc.Path; Bleve documents are
// keyed by ID, so indexing under an existing path overwrites it in place.
func (b *BleveTextIndex) Upsert(ctx context.Context, doc *TextDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	bd := bleveDoc{
		Path:       doc.Path,
		Repository: doc.Repository,
		Language:   doc.Language,
		Content:    doc.Content,
		Symbols:    strings.Join(doc.Symbols, " "),
	}
	return b.index.Index(doc.Path, bd)
}

func (b *BleveTextIndex) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}
	return b.index.Delete(path)
}

// SearchContent requires every token present (conjunction) unless fuzzy is
// set, in which case each token is expanded to a FuzzyQuery bounded by
// maxDistance and the clauses are OR'd, matching the literal executor's
// single-retry fuzzy fallback. maxDistance and threshold are cfg.Fuzzy's
// fuzzy_max_distance/fuzzy_threshold; threshold only affects the
// MatchedTerms returned on each hit (Bleve's FuzzyQuery has no score
// threshold of its own), not which documents it retrieves.
func (b *BleveTextIndex) SearchContent(ctx context.Context, tokens []string, fuzzy bool, maxDistance int, threshold float64, repositories, filePatterns []string, limit int) ([]*TextHit, error) {
	return b.search(ctx, "content", tokens, fuzzy, maxDistance, threshold, repositories, filePatterns, limit)
}

func (b *BleveTextIndex) SearchSymbols(ctx context.Context, tokens []string, repositories, filePatterns []string, limit int) ([]*TextHit, error) {
	return b.search(ctx, "symbols", tokens, false, 0, 0, repositories, filePatterns, limit)
}

func (b *BleveTextIndex) search(ctx context.Context, field string, tokens []string, fuzzy bool, maxDistance int, threshold float64, repositories, filePatterns []string, limit int) ([]*TextHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var termQueries []bleve.Query
	var matchedTerms map[string][]string
	if fuzzy {
		fuzziness := maxDistance
		if fuzziness <= 0 {
			fuzziness = 1
		}
		if fuzziness > 2 {
			fuzziness = 2 // Bleve's Levenshtein automaton only supports 0, 1, or 2.
		}

		matchedTerms = b.expandFuzzyTerms(field, tokens, maxDistance, threshold)

		disjunction := bleve.NewDisjunctionQuery()
		for _, t := range tokens {
			fq := bleve.NewFuzzyQuery(t)
			fq.SetField(field)
			fq.Fuzziness = fuzziness
			disjunction.AddQuery(fq)
		}
		termQueries = append(termQueries, disjunction)
	} else {
		for _, t := range tokens {
			mq := bleve.NewMatchQuery(t)
			mq.SetField(field)
			termQueries = append(termQueries, mq)
		}
	}

	conjunction := bleve.NewConjunctionQuery(termQueries...)

	var filters []bleve.Query
	for _, r := range repositories {
		tq := bleve.NewTermQuery(r)
		tq.SetField("repository")
		filters = append(filters, tq)
	}
	for _, p := range filePatterns {
		wq := bleve.NewWildcardQuery(p)
		wq.SetField("path")
		filters = append(filters, wq)
	}

	var finalQuery bleve.Query = conjunction
	if len(filters) > 0 {
		top := bleve.NewConjunctionQuery(conjunction)
		top.AddQuery(bleve.NewDisjunctionQuery(filters...))
		finalQuery = top
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = limit
	req.Fields = []string{"path", "repository", "language", "content", "symbols"}
	req.Highlight = bleve.NewHighlight()

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]*TextHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		h := &TextHit{
			Path:         stringField(hit.Fields, "path"),
			Repository:   stringField(hit.Fields, "repository"),
			Language:     stringField(hit.Fields, "language"),
			Score:        hit.Score,
			Fragments:    hit.Fragments,
			MatchedTerms: matchedTerms,
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// expandFuzzyTerms walks field's term dictionary and, for each query token,
// collects the indexed terms within maxDistance edits whose normalized
// similarity (1 - distance/max(len(token), len(term))) clears threshold.
// Bleve's FuzzyQuery retrieves matching documents but not the distances
// that matched, so this is how a fuzzy hit's MatchedTerms is derived.
// Falls back to the token itself when nothing in the dictionary qualifies,
// so a caller always has at least one term to rescan lines for.
func (b *BleveTextIndex) expandFuzzyTerms(field string, tokens []string, maxDistance int, threshold float64) map[string][]string {
	out := make(map[string][]string, len(tokens))

	dict, err := b.index.FieldDict(field)
	if err != nil {
		for _, t := range tokens {
			out[t] = []string{t}
		}
		return out
	}
	defer func() { _ = dict.Close() }()

	var terms []string
	for entry, nextErr := dict.Next(); nextErr == nil && entry != nil; entry, nextErr = dict.Next() {
		terms = append(terms, entry.Term)
	}

	for _, tok := range tokens {
		var variants []string
		for _, term := range terms {
			if term == tok {
				variants = append(variants, term)
				continue
			}
			dist := levenshteinDistance(tok, term)
			if dist > maxDistance {
				continue
			}
			maxLen := len(tok)
			if len(term) > maxLen {
				maxLen = len(term)
			}
			if maxLen == 0 {
				continue
			}
			if similarity := 1 - float64(dist)/float64(maxLen); similarity >= threshold {
				variants = append(variants, term)
			}
		}
		if len(variants) == 0 {
			variants = []string{tok}
		}
		out[tok] = variants
	}
	return out
}

// levenshteinDistance returns the edit distance between a and b.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			min := prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < min {
				min = ins
			}
			if sub := prev[j-1] + cost; sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func stringField(fields map[string]interface{}, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (b *BleveTextIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return b.index.DocCount()
}

func (b *BleveTextIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
