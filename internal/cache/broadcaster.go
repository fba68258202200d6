package cache

import "sync"

// RepositoryChanged is published whenever indexing completes for a
// repository — a full reindex, a single file update, or a watcher-driven
// incremental update — so every subscriber can drop now-stale cache entries.
type RepositoryChanged struct {
	Repository string
}

// Broadcaster fans a RepositoryChanged event out to every subscribed
// QueryCache. The orchestrator holds one broadcaster per workspace and runs
// Listen on one subscription for the QueryCache it creates.
type Broadcaster struct {
	mu   sync.Mutex
	subs []chan RepositoryChanged
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe returns a channel that receives every future RepositoryChanged
// event. The channel is buffered so a slow subscriber can't stall Publish.
func (b *Broadcaster) Subscribe() <-chan RepositoryChanged {
	ch := make(chan RepositoryChanged, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish notifies every subscriber. A subscriber whose buffer is full drops
// the event rather than blocking the publisher — invalidation is a cache
// optimization, not a correctness guarantee the indexer must wait on.
func (b *Broadcaster) Publish(event RepositoryChanged) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Listen runs until stop is closed, invoking c.OnRepositoryChanged for every
// event received on ch. Call it in its own goroutine right after
// Broadcaster.Subscribe.
func Listen(ch <-chan RepositoryChanged, c *QueryCache, stop <-chan struct{}) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			c.OnRepositoryChanged(event.Repository)
		case <-stop:
			return
		}
	}
}
