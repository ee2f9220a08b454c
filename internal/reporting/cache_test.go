package reporting

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), client
}

func TestCacheVersioning(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "stock")
	require.NoError(t, err)
	require.Equal(t, "reports:stock:1", key)

	require.NoError(t, cache.Bump(ctx))
	key, err = cache.BuildKey(ctx, "stock")
	require.NoError(t, err)
	require.Equal(t, "reports:stock:2", key)
}

func TestCacheFetchJSONSharesConcurrentMisses(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]int{"value": 7}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out map[string]int
			if err := cache.FetchJSON(ctx, "reports:test:1", &out, loader); err != nil {
				t.Errorf("fetch: %v", err)
				return
			}
			if out["value"] != 7 {
				t.Errorf("unexpected value %v", out)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	var out map[string]int
	require.NoError(t, cache.FetchJSON(ctx, "reports:test:1", &out, loader))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "sales")
	require.NoError(t, err)
	require.Equal(t, "reports:sales", key)
	require.NoError(t, cache.Bump(ctx))

	var out []int
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) { return []int{1, 2}, nil }))
	require.Equal(t, []int{1, 2}, out)
}

func TestListenForInvalidationFollowsPublishedVersion(t *testing.T) {
	cache, client := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, cache.ListenForInvalidation(ctx))
	require.NoError(t, client.Publish(ctx, bumpChannel, "9").Err())

	require.Eventually(t, func() bool {
		ver, err := cache.Version(ctx)
		return err == nil && ver == 9
	}, time.Second, 10*time.Millisecond)
}
