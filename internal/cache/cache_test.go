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

func TestGetOrLoadCachesValue(t *testing.T) {
	t.Parallel()

	c := New(8, time.Minute)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(context.Background(), c, "categories:all", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	c := New(8, time.Minute)
	boom := errors.New("boom")
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}

	_, err := GetOrLoad(context.Background(), c, "k", load)
	require.ErrorIs(t, err, boom)

	v, err := GetOrLoad(context.Background(), c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrLoadExpires(t *testing.T) {
	t.Parallel()

	c := New(8, 20*time.Millisecond)
	var calls atomic.Int32
	load := func(context.Context) (int32, error) { return calls.Add(1), nil }

	first, err := GetOrLoad(context.Background(), c, "k", load)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	second, err := GetOrLoad(context.Background(), c, "k", load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(2), second)
}

func TestGetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()

	c := New(8, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := GetOrLoad(context.Background(), c, "k", load)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.Equal(t, 1, c.Len())
}

func TestInvalidatePrefix(t *testing.T) {
	t.Parallel()

	c := New(8, time.Minute)
	for _, k := range []string{"prosmart:categories", "prosmart:subcategories:all", "hydralite:categories"} {
		_, err := GetOrLoad(context.Background(), c, k, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	c.InvalidatePrefix("prosmart:")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	t.Parallel()

	var c *Cache
	v, err := GetOrLoad(context.Background(), c, "k", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	c.InvalidatePrefix("k")
	c.Purge()
}

func TestInvalidateDuringLoadDropsStaleValue(t *testing.T) {
	t.Parallel()

	c := New(8, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int)

	go func() {
		v, err := GetOrLoad(context.Background(), c, "p:categories", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.InvalidatePrefix("p:")

	// a caller after the invalidation must not join the stale load
	fresh, err := GetOrLoad(context.Background(), c, "p:categories", func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, fresh)

	close(release)
	assert.Equal(t, 1, <-done)

	got, err := GetOrLoad(context.Background(), c, "p:categories", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestInvalidateDuringLoadThenReload(t *testing.T) {
	t.Parallel()

	c := New(8, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := GetOrLoad(context.Background(), c, "p:subcategories", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		assert.NoError(t, err)
	}()

	<-started
	c.InvalidatePrefix("p:")
	close(release)
	<-done

	got, err := GetOrLoad(context.Background(), c, "p:subcategories", func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}
