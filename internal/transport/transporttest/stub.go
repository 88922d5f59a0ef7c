// Package transporttest provides canned carrier backends for tests.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/noah-isme/parceltrack/internal/transport"
)

// Route answers requests for one target.
type Route func(req transport.Request) (*transport.Response, error)

// Stub is a call-counting transport keyed by request target.
type Stub struct {
	mu       sync.Mutex
	routes   map[string]Route
	calls    map[string]int
	requests []transport.Request
}

// NewStub returns an empty stub.
func NewStub() *Stub {
	return &Stub{routes: make(map[string]Route), calls: make(map[string]int)}
}

// Handle registers route for target.
func (s *Stub) Handle(target string, route Route) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[target] = route
	return s
}

// Body registers a fixed 200 response for target.
func (s *Stub) Body(target string, body string) *Stub {
	return s.Handle(target, Status(200, body))
}

// Status returns a route answering with code and body.
func Status(code int, body string) Route {
	return func(transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: code, Body: []byte(body)}, nil
	}
}

// Fail returns a route failing with err.
func Fail(err error) Route {
	return func(transport.Request) (*transport.Response, error) {
		return nil, err
	}
}

// Do implements transport.Transport.
func (s *Stub) Do(_ context.Context, req transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	s.calls[req.Target]++
	s.requests = append(s.requests, req)
	route, ok := s.routes[req.Target]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transporttest: no route for %q", req.Target)
	}
	return route(req)
}

// Calls reports how many requests hit target.
func (s *Stub) Calls(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[target]
}

// Requests returns every request seen so far.
func (s *Stub) Requests() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Request(nil), s.requests...)
}
