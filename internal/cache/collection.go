package cache

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// State tracks a cached collection through its refresh cycle
type State int

const (
	// Fresh means reads are served from memory
	Fresh State = iota
	// StalePending means the collection was invalidated and the next read
	// refetches. Every collection starts here, forcing one initial load.
	StalePending
	// Refetching means a load is in flight; overlapping invalidations
	// coalesce into at most one follow-up refetch
	Refetching
)

var (
	cacheRefetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_cache_refetch_total",
		Help: "Completed refetches per collection.",
	}, []string{"collection"})
	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_cache_invalidations_total",
		Help: "Invalidation triggers per collection.",
	}, []string{"collection"})
	cacheCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_cache_coalesced_total",
		Help: "Invalidations absorbed into an in-flight refetch.",
	}, []string{"collection"})
)

// Loader fetches the canonical snapshot for a collection
type Loader[T any] func(ctx context.Context) (T, error)

// Collection caches one entity collection keyed by query identity. The cache
// is a disposable projection: it is only ever written from confirmed loader
// results, never patched speculatively.
type Collection[T any] struct {
	name string
	load Loader[T]

	mu    sync.Mutex
	cond  *sync.Cond
	state State
	dirty bool

	value       T
	loaded      bool
	lastRefresh time.Time
}

// NewCollection creates a collection in StalePending so the first read
// performs the initial load
func NewCollection[T any](name string, load Loader[T]) *Collection[T] {
	c := &Collection[T]{name: name, load: load, state: StalePending}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Name returns the collection's cache key
func (c *Collection[T]) Name() string { return c.name }

// Invalidate marks the collection stale. If a refetch is already in flight
// the trigger is absorbed: exactly one follow-up refetch will run.
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cacheInvalidations.WithLabelValues(c.name).Inc()
	if c.state == Refetching {
		if c.dirty {
			cacheCoalesced.WithLabelValues(c.name).Inc()
		}
		c.dirty = true
		return
	}
	c.state = StalePending
}

// Get returns the collection snapshot, refetching first if it is stale.
// When the loader fails and a previous snapshot exists, that snapshot is
// returned alongside the error and the collection stays stale.
func (c *Collection[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	for {
		switch c.state {
		case Fresh:
			v := c.value
			c.mu.Unlock()
			return v, nil

		case Refetching:
			c.cond.Wait()

		case StalePending:
			c.state = Refetching
			c.dirty = false
			c.mu.Unlock()

			v, err := c.load(ctx)

			c.mu.Lock()
			if err != nil {
				c.state = StalePending
				stale := c.value
				c.cond.Broadcast()
				c.mu.Unlock()
				return stale, err
			}

			c.value = v
			c.loaded = true
			c.lastRefresh = time.Now()
			cacheRefetches.WithLabelValues(c.name).Inc()

			if c.dirty {
				// an invalidation landed mid-flight; go around once more
				c.state = StalePending
				continue
			}
			c.state = Fresh
			c.cond.Broadcast()
			v2 := c.value
			c.mu.Unlock()
			return v2, nil
		}
	}
}

// Peek returns the last loaded snapshot without triggering a refetch
func (c *Collection[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.loaded
}

// CurrentState reports the collection's refresh state
func (c *Collection[T]) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastRefresh reports when the collection last loaded successfully
func (c *Collection[T]) LastRefresh() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefresh
}
