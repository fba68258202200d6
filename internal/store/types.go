// Package store persists the engine's durable state: per-file metadata in
// SQLite, the full-text index in Bleve, and embeddings in an external
// Qdrant collection. The three stores are independent; the orchestrator is
// responsible for keeping them consistent per-path.
package store

import (
	"context"
	"time"

	"github.com/rune-engine/rune/internal/chunk"
)

// Workspace is a tracked indexing root. It carries the aggregate counters
// and detected project type surfaced by the stats operation, distinct from
// the per-file FileMeta rows.
type Workspace struct {
	ID          string
	Name        string
	RootPath    string
	ProjectType string
	FileCount   int
	ChunkCount  int
	IndexedAt   time.Time
	Version     string
}

// FileMeta is the persisted record for one observed file, keyed by Path.
// ContentHash is Blake3, 32 bytes.
type FileMeta struct {
	Path        string
	WorkspaceID string
	Repository  string
	SizeBytes   int64
	ModTime     time.Time
	ContentHash [32]byte
	Language    string
	IndexedAt   time.Time
	Generated   bool
}

// PersistedChunk is a chunk row keyed by (FilePath, StartLine, EndLine),
// with the symbols it owns.
type PersistedChunk struct {
	FilePath  string
	StartLine int
	EndLine   int
	Content   string
	Language  string
	Symbols   []*chunk.Symbol
}

// SymbolHit is a single search match inside the symbols index.
type SymbolHit struct {
	Name      string
	Type      chunk.SymbolType
	FilePath  string
	StartLine int
	EndLine   int
	Container string
}

// EmbeddingStats summarizes how many chunks have vectors, used by `stats`.
type EmbeddingStats struct {
	TotalChunks     int
	EmbeddedChunks  int
	MissingChunks   int
}

// MetadataStore persists Workspace/FileMeta/Chunk/Symbol rows in SQLite. It
// is the system of record for invariant 4: unchanged content_hash skips
// re-chunking.
type MetadataStore interface {
	SaveWorkspace(ctx context.Context, ws *Workspace) error
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	UpdateWorkspaceStats(ctx context.Context, id string, fileCount, chunkCount int) error
	RefreshWorkspaceStats(ctx context.Context, id string) error

	SaveFile(ctx context.Context, f *FileMeta) error
	GetFile(ctx context.Context, path string) (*FileMeta, error)
	DeleteFile(ctx context.Context, path string) error
	ListFiles(ctx context.Context, workspaceID string) ([]*FileMeta, error)
	ListFilePathsUnder(ctx context.Context, repository string) ([]string, error)

	SaveChunks(ctx context.Context, path string, chunks []*PersistedChunk) error
	GetChunksByFile(ctx context.Context, path string) ([]*PersistedChunk, error)
	DeleteChunksByFile(ctx context.Context, path string) error

	SearchSymbols(ctx context.Context, name string, limit int) ([]*SymbolHit, error)

	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}

// TextDocument is one unit indexed by the Text Index, one per file.
type TextDocument struct {
	Path       string
	Repository string
	Language   string
	Symbols    []string
	Content    string
}

// TextHit is a single Text Index match (one file) with its highlighted
// fragments, used by the literal and symbol search executors; it carries no
// line offsets. MatchedTerms is only populated for a fuzzy SearchContent
// call: it maps each query token to the indexed term variants (itself, plus
// any dictionary terms within the configured edit distance/threshold) that
// satisfied it, so the caller can rescan lines for the terms that actually
// matched instead of the literal query tokens.
type TextHit struct {
	Path         string
	Repository   string
	Language     string
	Score        float64
	Fragments    map[string][]string
	MatchedTerms map[string][]string
}

// TextIndex is the inverted full-text index over file content and symbol
// names. Writers are single-threaded by the orchestrator; readers may run
// concurrently with each other and with the writer. maxDistance and
// threshold configure the fuzzy pass (cfg.Fuzzy.MaxDistance/Threshold) and
// are ignored when fuzzy is false.
type TextIndex interface {
	Upsert(ctx context.Context, doc *TextDocument) error
	Delete(ctx context.Context, path string) error
	SearchContent(ctx context.Context, tokens []string, fuzzy bool, maxDistance int, threshold float64, repositories, filePatterns []string, limit int) ([]*TextHit, error)
	SearchSymbols(ctx context.Context, tokens []string, repositories, filePatterns []string, limit int) ([]*TextHit, error)
	Count() (uint64, error)
	Close() error
}

// QuantizationMode selects the Qdrant quantization applied to a collection.
// Fixed per collection at creation time.
type QuantizationMode string

const (
	QuantizationNone       QuantizationMode = "none"
	QuantizationScalar     QuantizationMode = "scalar"
	QuantizationBinary     QuantizationMode = "binary"
	QuantizationAsymmetric QuantizationMode = "asymmetric"
)

// VectorPoint is one embedded chunk, ready to upsert.
type VectorPoint struct {
	FilePath  string
	Repository string
	StartLine int
	EndLine   int
	Language  string
	Preview   string
	Vector    []float32
}

// VectorHit is a single semantic-search match.
type VectorHit struct {
	FilePath   string
	Repository string
	StartLine  int
	EndLine    int
	Language   string
	Preview    string
	Score      float64 // cosine similarity, normalized to [0,1]
}

// VectorFilter narrows a semantic search by path prefix and/or repository.
type VectorFilter struct {
	PathPrefix string
	Repository string
}

// VectorStoreClient is the gRPC client for the external vector database.
// One collection per workspace root.
type VectorStoreClient interface {
	EnsureCollection(ctx context.Context, workspaceRoot string, quantization QuantizationMode) error
	Upsert(ctx context.Context, workspaceRoot string, points []*VectorPoint) error
	Search(ctx context.Context, workspaceRoot string, vector []float32, k int, filter VectorFilter) ([]*VectorHit, error)
	DeleteByPath(ctx context.Context, workspaceRoot, path string) error
	Close() error
}
