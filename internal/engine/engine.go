package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/rune-engine/rune/internal/cache"
	"github.com/rune-engine/rune/internal/chunk"
	"github.com/rune-engine/rune/internal/config"
	"github.com/rune-engine/rune/internal/embed"
	"github.com/rune-engine/rune/internal/rerrors"
	"github.com/rune-engine/rune/internal/scanner"
	"github.com/rune-engine/rune/internal/search"
	"github.com/rune-engine/rune/internal/store"
	"github.com/rune-engine/rune/internal/watcher"
)

// Engine is the per-process orchestrator for one configured workspace: every
// root in cfg.WorkspaceRoots, indexed into one shared metadata store, text
// index, and vector collection, and searchable as a whole or scoped to a
// single root via the `repositories` filter spec.md defines.
type Engine struct {
	mu    sync.RWMutex
	state State
	cfg   *config.Config

	roots       []workspace
	workspaceID string
	primaryRoot string

	metadata    store.MetadataStore
	textIndex   store.TextIndex
	vectorStore store.VectorStoreClient
	embedder    embed.Embedder

	codeChunker *chunk.CodeChunker
	mdChunker   *chunk.MarkdownChunker
	sc          *scanner.Scanner

	searcher    *search.Searcher
	queryCache  *cache.QueryCache
	broadcaster *cache.Broadcaster

	watchers []*watcher.HybridWatcher

	lock *flock.Flock

	degradedMu    sync.Mutex
	degradedNotes []string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Engine for cfg without opening any store or connection yet
// — that happens in Initialize. Construction fails only on configuration
// errors: empty workspace_roots or an unresolvable root path.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, rerrors.ConfigError("nil config", nil)
	}
	if len(cfg.WorkspaceRoots) == 0 {
		return nil, rerrors.ConfigError("workspace_roots must not be empty", nil)
	}

	absRoots := make([]string, 0, len(cfg.WorkspaceRoots))
	for _, r := range cfg.WorkspaceRoots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, rerrors.ConfigError(fmt.Sprintf("resolve workspace root %q", r), err)
		}
		absRoots = append(absRoots, abs)
	}

	sorted := append([]string(nil), absRoots...)
	sort.Strings(sorted)
	workspaceID := deriveWorkspaceID(strings.Join(sorted, "\x00"))

	roots := make([]workspace, 0, len(absRoots))
	for _, abs := range absRoots {
		roots = append(roots, workspace{
			root:       abs,
			repository: deriveRepository(abs),
			id:         workspaceID,
		})
	}

	return &Engine{
		state:       StateUninitialized,
		cfg:         cfg,
		roots:       roots,
		workspaceID: workspaceID,
		primaryRoot: absRoots[0],
		stopCh:      make(chan struct{}),
	}, nil
}

// Initialize opens the durable stores, acquires the single-instance
// cache_dir lock, and builds the embedder/chunker/searcher/cache handles.
// Must be called exactly once, before Start.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateUninitialized {
		return rerrors.ConfigError(fmt.Sprintf("initialize called in state %s", e.state), nil)
	}

	cacheDir := e.cfg.CacheDirFor()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return rerrors.ConfigError("create cache_dir", err)
	}

	lock := flock.New(filepath.Join(cacheDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return rerrors.ConfigError("acquire cache_dir lock", err)
	}
	if !locked {
		return rerrors.ConfigError(fmt.Sprintf("cache_dir %s is locked by another rune process", cacheDir), nil)
	}
	e.lock = lock

	metadata, err := store.NewSQLiteStore(filepath.Join(cacheDir, "metadata.db"))
	if err != nil {
		_ = e.lock.Unlock()
		return rerrors.IOError("open metadata store", err)
	}
	e.metadata = metadata

	textIndex, err := store.NewBleveTextIndex(filepath.Join(cacheDir, "text"))
	if err != nil {
		_ = e.metadata.Close()
		_ = e.lock.Unlock()
		return rerrors.IOError("open text index", err)
	}
	e.textIndex = textIndex

	vectorStore, err := store.NewQdrantVectorStore(e.cfg.Vector.StoreURL)
	if err != nil {
		_ = e.textIndex.Close()
		_ = e.metadata.Close()
		_ = e.lock.Unlock()
		return rerrors.VectorStoreUnavailable("dial vector store", err)
	}
	e.vectorStore = vectorStore

	if e.cfg.EnableSemantic {
		quant := mapQuantizationMode(e.cfg.Vector.QuantizationMode)
		if err := e.vectorStore.EnsureCollection(ctx, e.primaryRoot, quant); err != nil {
			e.noteDegraded(fmt.Sprintf("vector store unreachable at startup: %v", err))
		}
	}

	e.embedder = e.buildEmbedder(ctx)

	sc, err := scanner.New()
	if err != nil {
		return rerrors.ConfigError("create scanner", err)
	}
	e.sc = sc

	e.codeChunker = chunk.NewCodeChunker()
	e.mdChunker = chunk.NewMarkdownChunker()

	e.broadcaster = cache.NewBroadcaster()
	ttl, ttlErr := time.ParseDuration(e.cfg.Performance.CacheTTL)
	if ttlErr != nil {
		ttl = cache.DefaultTTL
	}
	e.queryCache = cache.New(e.cfg.Performance.CacheSize, ttl)

	changed := e.broadcaster.Subscribe()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		cache.Listen(changed, e.queryCache, e.stopCh)
	}()

	e.searcher = search.NewSearcher(e.textIndex, e.vectorStore, e.metadata, e.embedder, e.primaryRoot, e.workspaceID)
	e.searcher.FuzzyEnabled = e.cfg.Fuzzy.Enabled
	e.searcher.FuzzyMaxDistance = e.cfg.Fuzzy.MaxDistance
	e.searcher.FuzzyThreshold = e.cfg.Fuzzy.Threshold

	ws := &store.Workspace{
		ID:        e.workspaceID,
		Name:      deriveRepository(e.primaryRoot),
		RootPath:  e.primaryRoot,
		IndexedAt: time.Now(),
	}
	if existing, getErr := e.metadata.GetWorkspace(ctx, e.workspaceID); getErr == nil && existing != nil {
		ws.ProjectType = existing.ProjectType
	}
	if err := e.metadata.SaveWorkspace(ctx, ws); err != nil {
		return rerrors.IOError("save workspace record", err)
	}

	e.state = StateInitialized
	return nil
}

// buildEmbedder constructs the Ollama -> Cached -> Bounded embedder chain,
// or an UnavailableEmbedder (never nil — Searcher calls Embed unconditionally
// in semantic/hybrid mode) when semantic search is disabled or the provider
// fails to start.
func (e *Engine) buildEmbedder(ctx context.Context) embed.Embedder {
	if !e.cfg.EnableSemantic {
		return embed.NewUnavailableEmbedder("enable_semantic is false")
	}

	provider := strings.ToLower(e.cfg.Embeddings.Provider)
	if provider != "" && provider != "ollama" {
		e.noteDegraded(fmt.Sprintf("embeddings.provider %q has no engine backend, semantic search disabled", e.cfg.Embeddings.Provider))
		return embed.NewUnavailableEmbedder("unsupported provider " + e.cfg.Embeddings.Provider)
	}

	oc := embed.DefaultOllamaConfig()
	if e.cfg.Embeddings.Model != "" {
		oc.Model = e.cfg.Embeddings.Model
	}
	if e.cfg.Embeddings.OllamaHost != "" {
		oc.Host = e.cfg.Embeddings.OllamaHost
	}
	if e.cfg.Embeddings.BatchSize > 0 {
		oc.BatchSize = e.cfg.Embeddings.BatchSize
	}
	if e.cfg.Embeddings.Dimensions > 0 {
		oc.Dimensions = e.cfg.Embeddings.Dimensions
	}

	base, err := embed.NewOllamaEmbedder(ctx, oc)
	if err != nil {
		e.noteDegraded(fmt.Sprintf("ollama embedder unavailable: %v", err))
		return embed.NewUnavailableEmbedder(err.Error())
	}

	cached := embed.NewCachedEmbedder(base, embed.DefaultEmbeddingCacheSize)
	return embed.NewBoundedEmbedder(cached, embed.MaxConcurrentEmbeds)
}

// Start runs the initial full index of every configured root, then starts
// one watcher per root. Must be called after Initialize.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateInitialized {
		e.mu.Unlock()
		return rerrors.ConfigError(fmt.Sprintf("start called in state %s", e.state), nil)
	}
	e.state = StateRunning
	e.mu.Unlock()

	for _, ws := range e.roots {
		if _, err := e.indexRoot(ctx, ws, false); err != nil {
			e.noteDegraded(fmt.Sprintf("initial index of %s failed: %v", ws.repository, err))
		}
	}

	if err := e.startWatchers(ctx); err != nil {
		e.noteDegraded(fmt.Sprintf("watcher startup failed: %v", err))
	}

	return nil
}

// Stop stops every watcher, closes the durable stores, and releases the
// cache_dir lock. Safe to call once after Start; subsequent calls are
// no-ops beyond the state check.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopped || e.state == StateUninitialized {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	e.mu.Unlock()

	close(e.stopCh)
	e.stopWatchers()
	e.wg.Wait()

	var errs []string
	if e.embedder != nil {
		if err := e.embedder.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if e.vectorStore != nil {
		if err := e.vectorStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if e.textIndex != nil {
		if err := e.textIndex.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if e.metadata != nil {
		if err := e.metadata.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return rerrors.IOError("errors while stopping engine: "+strings.Join(errs, "; "), nil)
	}
	return nil
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Config returns the engine's current effective configuration.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

func (e *Engine) noteDegraded(note string) {
	e.degradedMu.Lock()
	defer e.degradedMu.Unlock()
	e.degradedNotes = append(e.degradedNotes, note)
}

func (e *Engine) isDegraded() (bool, []string) {
	e.degradedMu.Lock()
	defer e.degradedMu.Unlock()
	return len(e.degradedNotes) > 0, append([]string(nil), e.degradedNotes...)
}

func (e *Engine) requireRunning() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateRunning {
		return rerrors.ShutdownInProgressError(fmt.Sprintf("engine is %s, not running", e.state))
	}
	return nil
}
