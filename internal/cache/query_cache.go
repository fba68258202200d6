// Package cache bounds and invalidates cached search responses.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rune-engine/rune/internal/search"
)

// DefaultCapacity and DefaultTTL match the bound the orchestrator applies to
// every workspace's query cache.
const (
	DefaultCapacity = 10_000
	DefaultTTL      = 5 * time.Minute

	// MinQueryLength is the shortest query that's worth caching; anything
	// shorter is cheap enough to recompute and churns the cache for little
	// benefit.
	MinQueryLength = 2
)

// entry pairs a response with the fingerprint it was cached under, so
// invalidation can test AppliesToRepository without re-parsing the key.
type entry struct {
	fingerprint search.QueryFingerprint
	response    *search.SearchResponse
}

// QueryCache caches SearchResponse values by QueryFingerprint.Key() and
// drops entries whose fingerprint could be affected when a repository
// changes. It does not subscribe itself: the owner feeds it RepositoryChanged
// events by running Listen on a Broadcaster subscription.
type QueryCache struct {
	mu    sync.RWMutex
	lru   *lru.LRU[string, entry]
	stats Stats
}

// Stats tracks cache effectiveness for the orchestrator's stats operation.
type Stats struct {
	Hits    int64
	Misses  int64
	Bypass  int64
	Evicted int64
}

// New builds a QueryCache with the given capacity and TTL. Zero values fall
// back to DefaultCapacity / DefaultTTL.
func New(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &QueryCache{}
	c.lru = lru.NewLRU[string, entry](capacity, func(key string, _ entry) {
		c.mu.Lock()
		c.stats.Evicted++
		c.mu.Unlock()
	}, ttl)
	return c
}

// Get returns the cached response for req, if present and not expired. Short
// queries bypass the cache entirely and always report a miss.
func (c *QueryCache) Get(req search.SearchRequest) (*search.SearchResponse, bool) {
	if len(req.Query) < MinQueryLength {
		c.mu.Lock()
		c.stats.Bypass++
		c.mu.Unlock()
		return nil, false
	}

	key := search.NewQueryFingerprint(req).Key()
	e, ok := c.lru.Get(key)

	c.mu.Lock()
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()

	if !ok {
		return nil, false
	}
	return e.response, true
}

// Put stores resp under req's fingerprint. Short queries are never stored.
func (c *QueryCache) Put(req search.SearchRequest, resp *search.SearchResponse) {
	if len(req.Query) < MinQueryLength {
		return
	}
	fp := search.NewQueryFingerprint(req)
	c.lru.Add(fp.Key(), entry{fingerprint: fp, response: resp})
}

// OnRepositoryChanged evicts every cached entry whose fingerprint could have
// been answered differently after repository changed — called by the
// orchestrator whenever a reindex or watcher event touches that repository.
func (c *QueryCache) OnRepositoryChanged(repository string) int {
	var stale []string
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if e.fingerprint.AppliesToRepository(repository) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		c.lru.Remove(key)
	}
	return len(stale)
}

// Purge clears every cached entry.
func (c *QueryCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries currently cached.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}

// GetStats returns a snapshot of cache hit/miss/bypass/eviction counters.
func (c *QueryCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
