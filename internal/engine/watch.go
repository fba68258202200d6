package engine

import (
	"context"
	"time"

	"github.com/rune-engine/rune/internal/cache"
	"github.com/rune-engine/rune/internal/watcher"
)

// startWatchers starts one HybridWatcher per configured root and launches a
// goroutine consuming its debounced event batches. A root whose watcher
// fails to start does not stop the others; only the first such error is
// returned, and roots that did start keep running.
func (e *Engine) startWatchers(ctx context.Context) error {
	var firstErr error
	debounce := time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond

	for _, ws := range e.roots {
		w, err := watcher.NewHybridWatcher(watcher.Options{DebounceWindow: debounce})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := w.Start(ctx, ws.root); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		e.mu.Lock()
		e.watchers = append(e.watchers, w)
		e.mu.Unlock()

		e.wg.Add(1)
		go e.consumeEvents(ctx, ws, w)
	}

	return firstErr
}

func (e *Engine) stopWatchers() {
	e.mu.RLock()
	watchers := append([]*watcher.HybridWatcher(nil), e.watchers...)
	e.mu.RUnlock()

	for _, w := range watchers {
		_ = w.Stop()
	}
}

// consumeEvents ranges over one watcher's debounced event batches, dispatching
// each to an index or remove call depending on its Operation. A gitignore or
// config change triggers a full re-scan of that root since either can change
// which files are indexable.
func (e *Engine) consumeEvents(ctx context.Context, ws workspace, w *watcher.HybridWatcher) {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			e.handleEventBatch(ctx, ws, batch)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			e.noteDegraded("watcher error for " + ws.repository + ": " + err.Error())
		}
	}
}

func (e *Engine) handleEventBatch(ctx context.Context, ws workspace, events []watcher.FileEvent) {
	rescan := false

	for _, ev := range events {
		if ev.IsDir {
			continue
		}
		switch ev.Operation {
		case watcher.OpGitignoreChange, watcher.OpConfigChange:
			rescan = true
		case watcher.OpDelete:
			if err := e.removeFile(ctx, ws, ev.Path); err != nil {
				e.noteDegraded(err.Error())
			}
		case watcher.OpRename:
			if ev.OldPath != "" {
				if err := e.removeFile(ctx, ws, ev.OldPath); err != nil {
					e.noteDegraded(err.Error())
				}
			}
			e.indexSingle(ctx, ws, ev.Path)
		default: // OpCreate, OpModify
			e.indexSingle(ctx, ws, ev.Path)
		}
	}

	if rescan {
		if _, err := e.indexRoot(ctx, ws, false); err != nil {
			e.noteDegraded("rescan " + ws.repository + ": " + err.Error())
		}
	}

	if len(events) > 0 {
		e.broadcaster.Publish(cache.RepositoryChanged{Repository: ws.repository})
	}
}
