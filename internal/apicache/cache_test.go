package apicache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLoader(calls *int32, payload string) Loader {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(payload), nil
	}
}

func TestFetchMemoizesByURL(t *testing.T) {
	cache := New(nil)
	ctx := context.Background()
	var calls int32

	first, err := cache.Fetch(ctx, "/api/content/home", countingLoader(&calls, "home"))
	require.NoError(t, err)
	second, err := cache.Fetch(ctx, "/api/content/home", countingLoader(&calls, "other"))
	require.NoError(t, err)

	assert.Equal(t, "home", string(first))
	assert.Equal(t, "home", string(second))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, err = cache.Fetch(ctx, "/api/content/about", countingLoader(&calls, "about"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchSharesInFlightLoad(t *testing.T) {
	cache := New(nil)
	release := make(chan struct{})
	var calls int32

	load := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("shared"), nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := cache.Fetch(context.Background(), "/api/forms/slug/contact", load)
			if err == nil {
				results[i] = string(data)
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, result := range results {
		assert.Equal(t, "shared", result)
	}
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	cache := New(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := cache.Fetch(ctx, "/x", func(context.Context) ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	var calls int32
	data, err := cache.Fetch(ctx, "/x", countingLoader(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClearURLForcesReload(t *testing.T) {
	cache := New(nil)
	ctx := context.Background()
	var calls int32

	_, err := cache.Fetch(ctx, "/a", countingLoader(&calls, "v1"))
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, "/b", countingLoader(&calls, "b"))
	require.NoError(t, err)

	require.NoError(t, cache.ClearURL(ctx, "/a"))

	data, err := cache.Fetch(ctx, "/a", countingLoader(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	data, err = cache.Fetch(ctx, "/b", countingLoader(&calls, "b2"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data), "other URLs stay cached")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClearDuringLoadDropsStaleResult(t *testing.T) {
	cache := New(nil)
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan []byte, 1)
	go func() {
		data, _ := cache.Fetch(ctx, "/a", func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte("stale"), nil
		})
		done <- data
	}()

	<-started
	require.NoError(t, cache.ClearURL(ctx, "/a"))
	close(release)
	assert.Equal(t, "stale", string(<-done), "the waiting caller still gets its result")

	var calls int32
	data, err := cache.Fetch(ctx, "/a", countingLoader(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClearFlushesEverything(t *testing.T) {
	store := NewMemoryStore()
	cache := New(store)
	ctx := context.Background()
	var calls int32

	for _, url := range []string{"/a", "/b", "/c"} {
		_, err := cache.Fetch(ctx, url, countingLoader(&calls, url))
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.Len())

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, store.Len())

	_, err := cache.Fetch(ctx, "/a", countingLoader(&calls, "/a"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestCanceledCallerStopsWaiting(t *testing.T) {
	cache := New(nil)
	release := make(chan struct{})
	var calls int32

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(ctx, "/slow", func(loadCtx context.Context) ([]byte, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return []byte("done"), loadCtx.Err()
		})
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	data, err := cache.Fetch(context.Background(), "/slow", countingLoader(&calls, "again"))
	require.NoError(t, err)
	assert.Equal(t, "done", string(data), "the detached load completes and is stored")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'x'

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	require.NoError(t, store.Delete(ctx, "k", "missing"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestUnreachableRedisFallsBackToLoader(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer rdb.Close()

	cache := New(NewRedisStore(rdb, ""))
	var calls int32
	data, err := cache.Fetch(context.Background(), "/api/content/home", countingLoader(&calls, "live"))
	require.NoError(t, err)
	assert.Equal(t, "live", string(data))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}
