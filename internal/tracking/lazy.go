package tracking

import (
	"context"
	"errors"
	"sync"
)

// Lazy is a write-once cell holding a fetched payload. Concurrent callers
// block on the in-flight load and share its result. Successful values and
// ErrUnknownParcel are remembered; other errors leave the cell empty.
type Lazy[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	err   error
	loads int
}

// Get returns the cached value, running load on first use.
func (l *Lazy[T]) Get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.value, l.err
	}
	l.loads++
	value, err := load(ctx)
	if err != nil {
		if errors.Is(err, ErrUnknownParcel) {
			l.done = true
			l.err = err
		}
		var zero T
		return zero, err
	}
	l.value = value
	l.done = true
	return value, nil
}

// Peek returns the cached value without loading.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done || l.err != nil {
		var zero T
		return zero, false
	}
	return l.value, true
}

// Loads reports how many times the loader ran.
func (l *Lazy[T]) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}
