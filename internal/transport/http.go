package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultUserAgent is sent when a request carries no User-Agent header.
const DefaultUserAgent = "parceltrack/1.0"

// NewHTTPClient returns an instrumented client for carrier backends. Some
// carrier endpoints serve certificates that do not verify; insecure skips
// verification for them.
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

// HTTP performs requests against carrier backends with a fixed per-request
// timeout and per-target circuit breakers. Every request is tried once.
type HTTP struct {
	Client    *http.Client
	Breakers  *BreakerSet
	Timeout   time.Duration
	UserAgent string
}

// Do executes req. Responses with a 5xx status count as breaker failures and
// are reported to the caller as an error.
func (h HTTP) Do(ctx context.Context, req Request) (*Response, error) {
	if h.Client == nil {
		return nil, errors.New("transport: http client not configured")
	}
	var breaker *Breaker
	if h.Breakers != nil {
		breaker = h.Breakers.For(req.target())
	}
	if breaker != nil && !breaker.Allow(ctx) {
		FetchTotal.WithLabelValues(req.target(), "open_circuit").Inc()
		return nil, fmt.Errorf("%s: %w", req.target(), ErrOpenCircuit)
	}

	resp, err := h.doOnce(ctx, req)
	success := err == nil && resp.StatusCode < 500
	if breaker != nil {
		breaker.Report(ctx, success)
	}
	switch {
	case err != nil:
		FetchTotal.WithLabelValues(req.target(), "error").Inc()
		return nil, fmt.Errorf("%s: %w", req.target(), err)
	case !success:
		FetchTotal.WithLabelValues(req.target(), strconv.Itoa(resp.StatusCode)).Inc()
		return nil, fmt.Errorf("%s: upstream status %d", req.target(), resp.StatusCode)
	}
	FetchTotal.WithLabelValues(req.target(), strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

func (h HTTP) doOnce(ctx context.Context, req Request) (*Response, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = h.Client.Timeout
	}
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	httpReq, err := h.build(callCtx, req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := h.Client.Do(httpReq)
	FetchDuration.WithLabelValues(req.target()).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (h HTTP) build(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), req.URL, body)
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		ua := h.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		httpReq.Header.Set("User-Agent", ua)
	}
	return httpReq, nil
}
