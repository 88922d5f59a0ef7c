package transport_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/transport"
	"github.com/noah-isme/parceltrack/internal/transport/transporttest"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheServesRepeatedRequests(t *testing.T) {
	mr, client := newRedis(t)
	stub := transporttest.NewStub().Body("gls.status", `{"tuStatus":[]}`)
	cache := transport.NewCache(stub, client, time.Minute)

	req := transport.Request{Target: "gls.status", CacheKey: "gls:status:123"}
	for i := 0; i < 3; i++ {
		resp, err := cache.Do(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, `{"tuStatus":[]}`, string(resp.Body))
	}
	require.Equal(t, 1, stub.Calls("gls.status"))
	require.True(t, mr.Exists("parceltrack:resp:gls:status:123"))

	mr.FastForward(2 * time.Minute)
	_, err := cache.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, stub.Calls("gls.status"))
}

func TestCacheSkipsUncacheableRequests(t *testing.T) {
	_, client := newRedis(t)
	stub := transporttest.NewStub().
		Body("dpd.status", `ok`).
		Handle("gls.status", transporttest.Status(404, ``))
	cache := transport.NewCache(stub, client, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cache.Do(ctx, transport.Request{Target: "dpd.status"})
		require.NoError(t, err)
		_, err = cache.Do(ctx, transport.Request{Target: "gls.status", CacheKey: "missing"})
		require.NoError(t, err)
	}
	require.Equal(t, 2, stub.Calls("dpd.status"))
	require.Equal(t, 2, stub.Calls("gls.status"))
}

func TestCacheFallsThroughWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()
	stub := transporttest.NewStub().Body("gls.status", `ok`)
	cache := transport.NewCache(stub, client, time.Minute)

	resp, err := cache.Do(context.Background(), transport.Request{Target: "gls.status", CacheKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "ok", string(resp.Body))
}

func TestCacheFillsOncePerKeyUnderConcurrency(t *testing.T) {
	_, client := newRedis(t)
	release := make(chan struct{})
	stub := transporttest.NewStub().Handle("dpd.status", func(transport.Request) (*transport.Response, error) {
		<-release
		return &transport.Response{StatusCode: 200, Body: []byte("ok")}, nil
	})
	cache := transport.NewCache(stub, client, time.Minute)
	cache.Locker.RetryBackoff = 5 * time.Millisecond
	req := transport.Request{Target: "dpd.status", CacheKey: "dpd:status:1"}

	const callers = 4
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := cache.Do(context.Background(), req)
			if err == nil && string(resp.Body) != "ok" {
				err = fmt.Errorf("unexpected body %q", resp.Body)
			}
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return stub.Calls("dpd.status") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, stub.Calls("dpd.status"))
}
