package indicator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ComputesOnce(t *testing.T) {
	cache := NewCache(0)
	var calls atomic.Int64

	compute := func() ([]float64, error) {
		calls.Add(1)
		return []float64{1, 2, 3}, nil
	}

	for i := 0; i < 5; i++ {
		series, err := cache.GetOrCompute("k", compute)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, series)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestCache_ConcurrentCallersCollapse(t *testing.T) {
	cache := NewCache(0)
	var calls atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrCompute("shared", func() ([]float64, error) {
				calls.Add(1)
				return []float64{42}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_FailureIsRetryable(t *testing.T) {
	cache := NewCache(0)
	boom := errors.New("boom")

	_, err := cache.GetOrCompute("k", func() ([]float64, error) {
		return nil, boom
	})
	var computeErr *core.CacheComputeError
	require.ErrorAs(t, err, &computeErr)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	// The failed key holds no entry, so the next call recomputes.
	series, err := cache.GetOrCompute("k", func() ([]float64, error) {
		return []float64{7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, series)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	// Budget fits two 10-element series (80 bytes each).
	cache := NewCache(160)

	series := func(v float64) func() ([]float64, error) {
		return func() ([]float64, error) {
			out := make([]float64, 10)
			for i := range out {
				out[i] = v
			}
			return out, nil
		}
	}

	_, err := cache.GetOrCompute("a", series(1))
	require.NoError(t, err)
	_, err = cache.GetOrCompute("b", series(2))
	require.NoError(t, err)

	// Touch "a" so "b" becomes the eviction candidate.
	_, err = cache.GetOrCompute("a", series(1))
	require.NoError(t, err)

	_, err = cache.GetOrCompute("c", series(3))
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
	assert.LessOrEqual(t, cache.UsedBytes(), int64(160))

	var recomputes atomic.Int64
	_, err = cache.GetOrCompute("b", func() ([]float64, error) {
		recomputes.Add(1)
		return []float64{2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), recomputes.Load(), "evicted key should recompute")
}

func TestCache_ZeroBudgetNeverEvicts(t *testing.T) {
	cache := NewCache(0)
	for i := 0; i < 100; i++ {
		_, err := cache.GetOrCompute(fmt.Sprintf("k%d", i), func() ([]float64, error) {
			return []float64{float64(i)}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 100, cache.Len())
}
