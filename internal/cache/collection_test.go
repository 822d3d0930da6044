package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionStartsStaleAndLoadsOnce(t *testing.T) {
	var loads int32
	col := NewCollection("tables", func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&loads, 1)
		return []string{"a", "b"}, nil
	})

	assert.Equal(t, StalePending, col.CurrentState())

	v, err := col.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.Equal(t, Fresh, col.CurrentState())

	// fresh reads are served from memory
	_, err = col.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var loads int32
	col := NewCollection("kitchen", func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&loads, 1)), nil
	})

	v, err := col.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	col.Invalidate()
	assert.Equal(t, StalePending, col.CurrentState())

	v, err = col.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestOverlappingInvalidationsCoalesce(t *testing.T) {
	var loads int32
	started := make(chan struct{})
	release := make(chan struct{})

	col := NewCollection("tables", func(ctx context.Context) (int, error) {
		n := int(atomic.AddInt32(&loads, 1))
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	})

	done := make(chan int)
	go func() {
		v, _ := col.Get(context.Background())
		done <- v
	}()

	<-started
	// three triggers land while the first refetch is in flight
	col.Invalidate()
	col.Invalidate()
	col.Invalidate()
	close(release)

	v := <-done
	assert.Equal(t, 2, v) // exactly one follow-up refetch, not three
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
	assert.Equal(t, Fresh, col.CurrentState())
}

func TestConcurrentGetsShareOneLoad(t *testing.T) {
	var loads int32
	col := NewCollection("menu", func(ctx context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return "menu", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := col.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "menu", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestFailedRefetchKeepsStaleValue(t *testing.T) {
	var fail atomic.Bool
	col := NewCollection("tables", func(ctx context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("backend down")
		}
		return "snapshot", nil
	})

	v, err := col.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot", v)

	fail.Store(true)
	col.Invalidate()

	v, err = col.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "snapshot", v) // prior value survives
	assert.Equal(t, StalePending, col.CurrentState())

	// recovery refetches on the next read
	fail.Store(false)
	v, err = col.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot", v)
	assert.Equal(t, Fresh, col.CurrentState())
}

func TestPeekNeverLoads(t *testing.T) {
	var loads int32
	col := NewCollection("tables", func(ctx context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return "snapshot", nil
	})

	_, ok := col.Peek()
	assert.False(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&loads))

	_, err := col.Get(context.Background())
	require.NoError(t, err)

	v, ok := col.Peek()
	assert.True(t, ok)
	assert.Equal(t, "snapshot", v)
}
