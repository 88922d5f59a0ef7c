package transport

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Options describes the transport stack used to reach carrier backends.
type Options struct {
	Timeout       time.Duration
	InsecureTLS   bool
	Breaker       BreakerSettings
	RatePerMinute int64
	CacheTTL      time.Duration
	Redis         *redis.Client
	Logger        zerolog.Logger

	// Breakers is shared with health reporting; built from Breaker when nil.
	Breakers *BreakerSet
}

// New assembles HTTP, throttling and caching layers. The cache sits in
// front so cached responses do not consume outbound budget.
func New(opts Options) (Transport, error) {
	breakers := opts.Breakers
	if breakers == nil {
		breakers = NewBreakerSet(opts.Breaker, opts.Logger)
	}
	var t Transport = HTTP{
		Client:   NewHTTPClient(opts.Timeout, opts.InsecureTLS),
		Breakers: breakers,
		Timeout:  opts.Timeout,
	}
	if opts.RatePerMinute > 0 {
		store, err := newLimiterStore(opts.Redis)
		if err != nil {
			return nil, fmt.Errorf("transport: limiter store: %w", err)
		}
		rate := limiter.Rate{Period: time.Minute, Limit: opts.RatePerMinute}
		t = Throttle{Next: t, Limiter: limiter.New(store, rate)}
	}
	if opts.Redis != nil && opts.CacheTTL > 0 {
		t = NewCache(t, opts.Redis, opts.CacheTTL)
	}
	return t, nil
}

func newLimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStore(), nil
	}
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "parceltrack:throttle"})
}
