package engine

import (
	"context"
)

// Search answers one query against the shared searcher, consulting the
// query cache first and populating it on a miss. Degraded-mode notes
// accumulated since Start are appended to the response's Degraded list so
// callers can tell a healthy empty result from one produced under
// degradation.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := e.requireRunning(); err != nil {
		return nil, err
	}

	req.Normalize()

	if cached, ok := e.queryCache.Get(req); ok {
		return cached, nil
	}

	resp, err := e.searcher.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if degraded, notes := e.isDegraded(); degraded {
		resp.Degraded = append(resp.Degraded, notes...)
	}

	e.queryCache.Put(req, resp)

	return resp, nil
}
