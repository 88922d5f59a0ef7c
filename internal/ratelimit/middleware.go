package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/parceltrack/internal/common"
)

// Config describes how requests map onto limiter keys. Max is the number of
// distinct lookups a client may make per Window.
type Config struct {
	Key    func(*http.Request) string
	Member func(*http.Request) string
	Window time.Duration
	Max    int
}

// ByClientIP keys requests by the caller address, namespaced by scope.
func ByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + common.ClientIP(r)
	}
}

// ByLookupPath identifies a lookup by its request path, so polling one
// parcel repeatedly is counted once. Query strings are ignored.
func ByLookupPath(r *http.Request) string {
	return r.URL.Path
}

// Handler enforces rate limits before delegating to the next handler.
// Limiter failures let the request through.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		var member string
		if h.Config.Member != nil {
			member = h.Config.Member(r)
		}
		d, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), member, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retryAfter := max(int(time.Until(d.Reset).Seconds()+0.5), 1)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "lookup limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
