package engine

import (
	"time"

	"github.com/rune-engine/rune/internal/search"
)

// State is the Engine's lifecycle state. Transitions are strictly linear:
// Uninitialized -> Initialized -> Running -> Stopped. There is no way back
// to Running once Stopped; callers construct a new Engine instead.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateRunning        State = "running"
	StateStopped        State = "stopped"
)

// workspace pairs one configured root with its derived identity: the
// repository label surfaced on every Result, the absolute path the scanner
// and watcher resolve against, and the shared workspace ID (identical across
// every root in the Engine — see deriveWorkspaceID) that FileMeta rows and
// the query cache are keyed under.
type workspace struct {
	root       string // absolute
	repository string // label, e.g. filepath.Base(root)
	id         string // shared across all roots of this Engine
}

// Stats summarizes one workspace's indexed state for the `stats` operation.
type Stats struct {
	WorkspaceID   string
	Repository    string
	ProjectType   string
	IndexedFiles  int
	TotalChunks   int
	TotalSymbols  int
	IndexSizeBytes int64
	CacheEntries  int
	CacheHits     int64
	CacheMisses   int64
	WatcherStatus string
	Degraded      bool
	DegradedNotes []string
	IndexedAt     time.Time
}

// SearchRequest and SearchResponse are re-exported so callers only need to
// import internal/engine, not internal/search, to issue a query.
type SearchRequest = search.SearchRequest
type SearchResponse = search.SearchResponse

// ReindexOptions narrows a reindex operation to a subset of repositories.
// An empty Repositories list reindexes every configured workspace root.
type ReindexOptions struct {
	Repositories []string
	Force        bool // re-chunk every file even if content_hash is unchanged
}

// ReindexResult reports what a reindex operation actually did.
type ReindexResult struct {
	FilesScanned int
	FilesIndexed int
	FilesSkipped int
	FilesRemoved int
	Errors       []string
}
