// Package ratelimit throttles inbound tracking requests per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript keeps one sorted set per client, scored by last use in unix
// milliseconds. A member already in the window is refreshed and always
// allowed; a new member is admitted only while the set is below the limit.
// Rejected members are not recorded.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local allowed = 0
if redis.call('ZSCORE', key, member) then
  allowed = 1
elseif redis.call('ZCARD', key) < limit then
  allowed = 1
end
if allowed == 1 then
  redis.call('ZADD', key, now, member)
end
redis.call('PEXPIRE', key, window)

local count = redis.call('ZCARD', key)
local oldest = now
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is when the oldest counted lookup leaves the window.
	Reset time.Time
}

// Limiter is a Redis backed sliding window that counts distinct lookups per
// client: asking for the same parcel again inside the window is free.
// A nil client disables limiting.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records member for client and reports whether it fits in limit
// distinct members per window. An empty member counts as a fresh lookup.
func (l Limiter) Allow(ctx context.Context, client, member string, window time.Duration, limit int) (Decision, error) {
	now := time.Now()
	if l.Client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max(limit, 0), Reset: now.Add(window)}, nil
	}
	if member == "" {
		member = uuid.NewString()
	}

	res, err := allowScript.Run(ctx, l.Client, []string{l.Prefix + client},
		now.UnixMilli(), max(window.Milliseconds(), 1), limit, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return Decision{
		Allowed:   res[0] == 1,
		Remaining: max(limit-int(res[1]), 0),
		Reset:     time.UnixMilli(res[2]).Add(window),
	}, nil
}
