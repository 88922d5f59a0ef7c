package transport

import (
	"context"
	"errors"
	"fmt"

	limiter "github.com/ulule/limiter/v3"
)

// ErrThrottled is returned when the outbound request budget for a carrier
// endpoint is exhausted.
var ErrThrottled = errors.New("transport: outbound rate limit reached")

// Throttle caps outbound requests per target. It never waits: a request
// over budget fails immediately.
type Throttle struct {
	Next    Transport
	Limiter *limiter.Limiter
}

// Do forwards req when the target still has budget.
func (t Throttle) Do(ctx context.Context, req Request) (*Response, error) {
	if t.Limiter == nil {
		return t.Next.Do(ctx, req)
	}
	lctx, err := t.Limiter.Get(ctx, req.target())
	if err != nil {
		return nil, fmt.Errorf("%s: throttle: %w", req.target(), err)
	}
	if lctx.Reached {
		FetchTotal.WithLabelValues(req.target(), "throttled").Inc()
		return nil, fmt.Errorf("%s: %w", req.target(), ErrThrottled)
	}
	return t.Next.Do(ctx, req)
}
