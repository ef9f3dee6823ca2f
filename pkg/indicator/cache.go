package indicator

import (
	"container/list"
	"sync"

	"github.com/quantlab-io/backtune/pkg/core"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes derived series keyed by (symbol, timeframe, indicator,
// parameters, data range). Values are immutable once computed, since
// historical data never changes, so eviction is driven purely by the
// byte budget: least-recently-used series go first.
//
// Concurrent GetOrCompute calls for the same key collapse into a single
// computation; workers for other keys proceed independently.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	used    int64
	budget  int64

	group singleflight.Group
}

type cacheEntry struct {
	key    string
	series []float64
	size   int64
}

// NewCache creates a cache bounded by the given byte budget. A budget
// of zero or less disables eviction.
func NewCache(byteBudget int64) *Cache {
	return &Cache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		budget:  byteBudget,
	}
}

var _ core.IndicatorCache = (*Cache)(nil)

// GetOrCompute returns the cached series for key, computing it at most
// once across concurrent callers. A failed computation is reported as a
// *core.CacheComputeError and leaves no entry behind, so the key stays
// retryable and other keys are unaffected.
func (c *Cache) GetOrCompute(key string, compute func() ([]float64, error)) ([]float64, error) {
	if series, ok := c.lookup(key); ok {
		return series, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent flight may have stored the value between our miss
		// and acquiring the flight.
		if series, ok := c.lookup(key); ok {
			return series, nil
		}

		series, err := compute()
		if err != nil {
			return nil, &core.CacheComputeError{Key: key, Err: err}
		}
		c.store(key, series)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

func (c *Cache) lookup(key string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).series, true
}

func (c *Cache) store(key string, series []float64) {
	size := int64(len(series)) * 8

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}

	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, series: series, size: size})
	c.used += size

	if c.budget <= 0 {
		return
	}
	for c.used > c.budget && c.lru.Len() > 1 {
		oldest := c.lru.Back()
		entry := oldest.Value.(*cacheEntry)
		c.lru.Remove(oldest)
		delete(c.entries, entry.key)
		c.used -= entry.size
	}
}

// Len returns the number of cached series
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// UsedBytes returns the current memory footprint of cached values
func (c *Cache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}
