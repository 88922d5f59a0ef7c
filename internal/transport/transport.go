package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Request describes one call to a carrier backend.
type Request struct {
	// Target labels the logical endpoint (e.g. "gls.status") for metrics,
	// breakers and throttling.
	Target string
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
	// CacheKey enables response caching when non-empty.
	CacheKey string
}

// Response is the raw outcome of a request that reached the backend.
type Response struct {
	StatusCode int    `json:"status"`
	Body       []byte `json:"body"`
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport fetches raw carrier payloads.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req Request) (*Response, error)

// Do calls f.
func (f Func) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) target() string {
	if r.Target == "" {
		return "default"
	}
	return r.Target
}
