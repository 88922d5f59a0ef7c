package transport

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when a carrier breaker refuses a request.
var ErrOpenCircuit = errors.New("transport: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerSettings configures failure-ratio breakers.
type BreakerSettings struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

func (s BreakerSettings) normalized() BreakerSettings {
	if s.MinRequests <= 0 {
		s.MinRequests = 1
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	if s.FailureRatio > 1 {
		s.FailureRatio = 1
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	return s
}

// Breaker trips when the failure ratio of a carrier endpoint exceeds the
// configured threshold once the minimum number of requests is observed.
type Breaker struct {
	mu       sync.Mutex
	state    State
	failures int
	success  int
	settings BreakerSettings
	openedAt time.Time
	target   string
	logger   *zerolog.Logger
}

// NewBreaker constructs a closed breaker for target.
func NewBreaker(target string, settings BreakerSettings) *Breaker {
	b := &Breaker{
		state:    Closed,
		settings: settings.normalized(),
		target:   strings.TrimSpace(target),
	}
	b.recordStateLocked()
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may proceed. An open breaker moves to
// half-open once the cool-off period has elapsed.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) >= b.settings.OpenFor {
		b.changeStateLocked(ctx, HalfOpen)
		return true
	}
	return false
}

// Report records the outcome of a request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.changeStateLocked(ctx, Closed)
		} else {
			b.changeStateLocked(ctx, Open)
		}
		return
	}

	if success {
		b.success++
	} else {
		b.failures++
	}
	total := b.failures + b.success
	if total < b.settings.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.settings.FailureRatio {
		b.changeStateLocked(ctx, Open)
	} else if total > b.settings.MinRequests*2 {
		// halve the window so old successes do not mask a new outage
		b.success = int(math.Ceil(float64(b.success) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

func (b *Breaker) changeStateLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.failures = 0
	b.success = 0
	b.recordStateLocked()

	label := b.targetLabel()
	BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	evt := b.loggerFor(ctx).Info().Str("target", label).Str("from_state", prev.String()).Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("carrier_breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	BreakerState.WithLabelValues(b.targetLabel()).Set(float64(b.state))
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if b.logger == nil {
		return &breakerNopLogger
	}
	return b.logger
}

// BreakerSet lazily creates one breaker per request target.
type BreakerSet struct {
	mu       sync.Mutex
	settings BreakerSettings
	logger   *zerolog.Logger
	byTarget map[string]*Breaker
}

// NewBreakerSet returns a set that builds breakers with settings.
func NewBreakerSet(settings BreakerSettings, logger zerolog.Logger) *BreakerSet {
	return &BreakerSet{settings: settings, logger: &logger, byTarget: make(map[string]*Breaker)}
}

// For returns the breaker guarding target.
func (s *BreakerSet) For(target string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byTarget[target]; ok {
		return b
	}
	b := NewBreaker(target, s.settings)
	if s.logger != nil {
		b.WithLogger(*s.logger)
	}
	s.byTarget[target] = b
	return b
}

// OpenTargets lists the targets whose breaker is currently open.
func (s *BreakerSet) OpenTargets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for target, b := range s.byTarget {
		if b.State() == Open {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}
