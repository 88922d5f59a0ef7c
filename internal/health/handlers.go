package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles readiness. The server flips it off before shutdown so
// load balancers drain traffic first.
func SetReady(v bool) {
	ready.Store(v)
}

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// BreakerReporter lists carrier targets whose circuit is currently open.
type BreakerReporter interface {
	OpenTargets() []string
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	Breakers     BreakerReporter
	RedisTimeout time.Duration
}

// Status is the readiness payload.
type Status struct {
	Status       string   `json:"status"`
	Redis        string   `json:"redis"`
	OpenBreakers []string `json:"open_breakers"`
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. Redis is probed when configured; open carrier
// breakers are reported but do not fail the probe since the API still
// answers for the other carriers.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := Status{Status: "ok", Redis: "disabled", OpenBreakers: []string{}}
	code := http.StatusOK

	if !ready.Load() {
		status.Status = "shutting_down"
		code = http.StatusServiceUnavailable
	}
	if h.Checker != nil {
		status.Redis = "ok"
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			status.Redis = err.Error()
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if h.Breakers != nil {
		if open := h.Breakers.OpenTargets(); len(open) > 0 {
			status.OpenBreakers = open
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
