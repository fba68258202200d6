package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTextIndex(t *testing.T) *BleveTextIndex {
	t.Helper()
	idx, err := NewBleveTextIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveTextIndex_UpsertAndSearchContent(t *testing.T) {
	idx := newTestTextIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &TextDocument{
		Path:       "server.go",
		Repository: "repo-a",
		Language:   "go",
		Symbols:    []string{"HandleRequest"},
		Content:    "func HandleRequest(w http.ResponseWriter, r *http.Request) {}",
	}))
	require.NoError(t, idx.Upsert(ctx, &TextDocument{
		Path:       "client.go",
		Repository: "repo-b",
		Language:   "go",
		Content:    "func Dial(addr string) error { return nil }",
	}))

	hits, err := idx.SearchContent(ctx, []string{"HandleRequest"}, false, 0, 0, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "server.go", hits[0].Path)
}

func TestBleveTextIndex_SearchContent_FuzzyMatchesNearMissTerm(t *testing.T) {
	idx := newTestTextIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &TextDocument{
		Path: "db.go", Repository: "repo-a", Language: "go",
		Content: "func connect() { return open the database connection }",
	}))

	exact, err := idx.SearchContent(ctx, []string{"databse"}, false, 0, 0, nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, exact, "misspelled token should not match exactly")

	fuzzy, err := idx.SearchContent(ctx, []string{"databse"}, true, 2, 0.6, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, fuzzy, 1)
	assert.Equal(t, "db.go", fuzzy[0].Path)
	assert.Contains(t, fuzzy[0].MatchedTerms["databse"], "database")
}

func TestBleveTextIndex_SearchContent_RepositoryFilter(t *testing.T) {
	idx := newTestTextIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &TextDocument{Path: "a.go", Repository: "repo-a", Content: "package main"}))
	require.NoError(t, idx.Upsert(ctx, &TextDocument{Path: "b.go", Repository: "repo-b", Content: "package main"}))

	hits, err := idx.SearchContent(ctx, []string{"package"}, false, 0, 0, []string{"repo-a"}, nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.go", hits[0].Path)
}

func TestBleveTextIndex_Delete(t *testing.T) {
	idx := newTestTextIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &TextDocument{Path: "a.go", Content: "package main"}))
	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, idx.Delete(ctx, "a.go"))
	count, err = idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestBleveTextIndex_SearchSymbols(t *testing.T) {
	idx := newTestTextIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &TextDocument{
		Path: "a.go", Symbols: []string{"Calculator", "Add"}, Content: "type Calculator struct{}",
	}))

	hits, err := idx.SearchSymbols(ctx, []string{"Calculator"}, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.go", hits[0].Path)
}

func TestBleveTextIndex_Upsert_OverwritesExisting(t *testing.T) {
	idx := newTestTextIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &TextDocument{Path: "a.go", Content: "version one"}))
	require.NoError(t, idx.Upsert(ctx, &TextDocument{Path: "a.go", Content: "version two"}))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := idx.SearchContent(ctx, []string{"version", "one"}, false, 0, 0, nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
