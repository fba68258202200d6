package engine

import (
	"context"

	"github.com/rune-engine/rune/internal/cache"
)

// Reindex re-walks the requested repositories (every configured root when
// opts.Repositories is empty), re-chunking every file whose content hash has
// changed since the last index — or every file, if opts.Force is set.
// Unknown repository names in opts.Repositories are silently ignored.
func (e *Engine) Reindex(ctx context.Context, opts ReindexOptions) (*ReindexResult, error) {
	if err := e.requireRunning(); err != nil {
		return nil, err
	}

	targets := e.roots
	if len(opts.Repositories) > 0 {
		want := make(map[string]bool, len(opts.Repositories))
		for _, r := range opts.Repositories {
			want[r] = true
		}
		targets = nil
		for _, ws := range e.roots {
			if want[ws.repository] {
				targets = append(targets, ws)
			}
		}
	}

	total := &ReindexResult{}
	for _, ws := range targets {
		res, err := e.indexRoot(ctx, ws, opts.Force)
		if res != nil {
			total.FilesScanned += res.FilesScanned
			total.FilesIndexed += res.FilesIndexed
			total.FilesSkipped += res.FilesSkipped
			total.Errors = append(total.Errors, res.Errors...)
		}
		if err != nil {
			total.Errors = append(total.Errors, err.Error())
			continue
		}
		e.broadcaster.Publish(cache.RepositoryChanged{Repository: ws.repository})
	}

	return total, nil
}
