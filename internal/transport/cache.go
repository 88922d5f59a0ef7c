package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parceltrack/internal/lock"
)

// fillLockTTL bounds how long one replica may hold the fill lock for a key.
const fillLockTTL = 15 * time.Second

// Cache stores successful responses in Redis for requests that carry a
// CacheKey. Cache errors never fail a request; they are logged and the
// request falls through to Next. When Locker is set, misses for the same key
// are filled by one caller at a time so replicas do not stampede a carrier.
type Cache struct {
	Next   Transport
	Client *redis.Client
	TTL    time.Duration
	Prefix string
	Locker *lock.Locker
}

// NewCache wraps next with a Redis response cache. A nil client or a
// non-positive ttl disables caching.
func NewCache(next Transport, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		Next:   next,
		Client: client,
		TTL:    ttl,
		Prefix: "parceltrack:resp:",
		Locker: &lock.Locker{Client: client, Prefix: "parceltrack:fill:"},
	}
}

// Do serves req from the cache when possible.
func (c *Cache) Do(ctx context.Context, req Request) (*Response, error) {
	if !c.enabled() || req.CacheKey == "" {
		return c.Next.Do(ctx, req)
	}
	key := c.Prefix + req.CacheKey
	if cached, ok := c.lookup(ctx, req, key); ok {
		return cached, nil
	}
	if c.Locker == nil {
		return c.fill(ctx, req, key)
	}

	var resp *Response
	err := c.Locker.WithLock(ctx, req.CacheKey, fillLockTTL, func(ctx context.Context) error {
		// another holder may have filled the entry while we waited
		if cached, ok := c.lookup(ctx, req, key); ok {
			resp = cached
			return nil
		}
		var err error
		resp, err = c.fill(ctx, req, key)
		return err
	})
	if errors.Is(err, lock.ErrUnavailable) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache fill lock unavailable")
		return c.fill(ctx, req, key)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Cache) lookup(ctx context.Context, req Request, key string) (*Response, bool) {
	cached, ok := c.get(ctx, key)
	if ok {
		FetchTotal.WithLabelValues(req.target(), "cache_hit").Inc()
	}
	return cached, ok
}

func (c *Cache) fill(ctx context.Context, req Request, key string) (*Response, error) {
	resp, err := c.Next.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		c.set(ctx, key, resp)
	}
	return resp, nil
}

func (c *Cache) enabled() bool {
	return c != nil && c.Client != nil && c.TTL > 0
}

func (c *Cache) get(ctx context.Context, key string) (*Response, bool) {
	data, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("response cache read failed")
		}
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("response cache entry corrupt")
		return nil, false
	}
	return &resp, true
}

func (c *Cache) set(ctx context.Context, key string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, key, data, c.TTL).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("response cache write failed")
	}
}
