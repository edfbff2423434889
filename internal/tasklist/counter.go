package tasklist

import (
	"context"
	"sync"
)

// Counter caches the remote task count for display. Get asks the remote
// store again only when the collection or the signed-in account changed
// since the last successful fetch, so redrawing a view does not issue a
// remote call.
type Counter struct {
	store *Store

	mu      sync.Mutex
	fetched bool
	version uint64
	account string
	count   int
}

// NewCounter returns a counter over store.
func NewCounter(store *Store) *Counter {
	return &Counter{store: store}
}

// Get returns the task count, fetching it when stale. On failure the last
// known count is returned with the error.
func (c *Counter) Get(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	version := c.store.Version()
	account := c.store.AccountID()
	if c.fetched && c.version == version && c.account == account {
		return c.count, nil
	}

	n, err := c.store.Count(ctx)
	if err != nil {
		return c.count, err
	}
	c.fetched = true
	c.version = version
	c.account = account
	c.count = n
	return n, nil
}

// Invalidate forces the next Get to fetch.
func (c *Counter) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = false
}
