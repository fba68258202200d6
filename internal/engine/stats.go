package engine

import (
	"context"
)

// Stats reports aggregate indexed state and cache/watcher health for the
// whole workspace (every configured root, since they share one metadata
// store and one text index). Per-repository file/chunk counts live on the
// individual FileMeta rows and aren't broken out here.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	if err := e.requireRunning(); err != nil {
		return nil, err
	}

	ws, err := e.metadata.GetWorkspace(ctx, e.workspaceID)
	if err != nil {
		return nil, err
	}

	textCount, _ := e.textIndex.Count()

	cacheStats := e.queryCache.GetStats()
	degraded, notes := e.isDegraded()

	s := &Stats{
		WorkspaceID:   e.workspaceID,
		Repository:    deriveRepository(e.primaryRoot),
		CacheEntries:  e.queryCache.Len(),
		CacheHits:     cacheStats.Hits,
		CacheMisses:   cacheStats.Misses,
		WatcherStatus: e.watcherStatus(),
		Degraded:      degraded,
		DegradedNotes: notes,
	}
	s.TotalChunks = int(textCount)

	if ws != nil {
		s.ProjectType = ws.ProjectType
		s.IndexedFiles = ws.FileCount
		s.IndexedAt = ws.IndexedAt
		if ws.ChunkCount > 0 {
			s.TotalChunks = ws.ChunkCount
		}
	}

	return s, nil
}

func (e *Engine) watcherStatus() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.watchers) == 0 {
		return "stopped"
	}
	healthy := 0
	for _, w := range e.watchers {
		if w.IsHealthy() {
			healthy++
		}
	}
	if healthy == len(e.watchers) {
		return "healthy"
	}
	if healthy == 0 {
		return "unhealthy"
	}
	return "degraded"
}
