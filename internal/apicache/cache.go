// Package apicache memoizes GET responses by exact URL. Concurrent requests
// for the same URL share one load, failed loads are never stored and entries
// live until they are cleared.
package apicache

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader produces the payload for a URL on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// Stamp identifies the cache generation a load started in. A payload is only
// stored if no clear happened since its stamp was taken.
type Stamp struct {
	global uint64
	key    uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *zap.Logger

	mu        sync.Mutex
	global    uint64
	keyEpochs map[string]uint64
	inflight  map[string]int
}

// New returns a Cache over store. A nil store uses a MemoryStore.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store:     store,
		logger:    zap.NewNop(),
		keyEpochs: make(map[string]uint64),
		inflight:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached payload for url or runs load once for all
// concurrent callers. The loader runs detached from the caller's cancellation
// so other waiters still get its result; a caller whose ctx ends stops waiting.
// The returned slice must not be modified.
func (c *Cache) Fetch(ctx context.Context, url string, load Loader) ([]byte, error) {
	if data, ok := c.Peek(ctx, url); ok {
		return data, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(url, func() (any, error) {
		c.track(url, 1)
		defer c.track(url, -1)

		if data, ok := c.Peek(loadCtx, url); ok {
			return data, nil
		}

		stamp := c.Stamp(url)
		data, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.PutIfCurrent(loadCtx, url, stamp, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Peek returns a stored payload without loading. Store errors count as a miss.
func (c *Cache) Peek(ctx context.Context, url string) ([]byte, bool) {
	data, ok, err := c.store.Get(ctx, url)
	if err != nil {
		c.logger.Warn("api cache read failed", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	return data, ok
}

// Stamp captures the current generation of url.
func (c *Cache) Stamp(url string) Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stamp{global: c.global, key: c.keyEpochs[url]}
}

// PutIfCurrent stores data unless url was cleared after stamp was taken.
func (c *Cache) PutIfCurrent(ctx context.Context, url string, stamp Stamp, data []byte) bool {
	if c.Stamp(url) != stamp {
		return false
	}
	if err := c.store.Set(ctx, url, data); err != nil {
		c.logger.Warn("api cache write failed", zap.String("url", url), zap.Error(err))
		return false
	}
	// a clear may have raced the write
	if c.Stamp(url) != stamp {
		_ = c.store.Delete(ctx, url)
		return false
	}
	return true
}

// ClearURL drops the entry for url. Loads already running for url will not
// store their result.
func (c *Cache) ClearURL(ctx context.Context, url string) error {
	c.mu.Lock()
	c.keyEpochs[url]++
	c.mu.Unlock()

	c.group.Forget(url)
	return c.store.Delete(ctx, url)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.global++
	c.keyEpochs = make(map[string]uint64)
	running := make([]string, 0, len(c.inflight))
	for url := range c.inflight {
		running = append(running, url)
	}
	c.mu.Unlock()

	for _, url := range running {
		c.group.Forget(url)
	}
	return c.store.Flush(ctx)
}

func (c *Cache) track(url string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[url] += delta
	if c.inflight[url] <= 0 {
		delete(c.inflight, url)
	}
}
