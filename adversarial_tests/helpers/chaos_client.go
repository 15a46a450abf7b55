package helpers

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ChaosMode defines the type of chaos to inject
type ChaosMode int

const (
	// ChaosNone passes requests through untouched
	ChaosNone ChaosMode = iota

	// ChaosConnectionReset fails the round trip with ECONNRESET
	ChaosConnectionReset

	// ChaosTimeout fails the round trip with a net.Error that reports Timeout
	ChaosTimeout

	// ChaosServiceUnavailable answers 503
	ChaosServiceUnavailable

	// ChaosRateLimited answers 429 with Retry-After: 0
	ChaosRateLimited

	// ChaosInvalidJSON answers 200 with a truncated JSON body
	ChaosInvalidJSON

	// ChaosForbidden answers 403
	ChaosForbidden
)

func (m ChaosMode) String() string {
	switch m {
	case ChaosConnectionReset:
		return "connection_reset"
	case ChaosTimeout:
		return "timeout"
	case ChaosServiceUnavailable:
		return "service_unavailable"
	case ChaosRateLimited:
		return "rate_limited"
	case ChaosInvalidJSON:
		return "invalid_json"
	case ChaosForbidden:
		return "forbidden"
	}
	return "none"
}

// ChaosConfig configures the chaos transport behavior
type ChaosConfig struct {
	// Mode determines which type of chaos to inject
	Mode ChaosMode

	// Failures is how many matching requests fail before requests pass
	// through. Negative means every matching request fails.
	Failures int

	// PathPrefix restricts chaos to requests whose path starts with it.
	PathPrefix string
}

// ChaosTransport wraps an http.RoundTripper and injects failures
type ChaosTransport struct {
	next   http.RoundTripper
	config ChaosConfig

	mu       sync.Mutex
	injected int
	requests int
}

// NewChaosTransport creates a transport that injects config's failures in
// front of next. A nil next uses http.DefaultTransport.
func NewChaosTransport(next http.RoundTripper, config ChaosConfig) *ChaosTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &ChaosTransport{next: next, config: config}
}

// Injected returns how many failures have been injected.
func (c *ChaosTransport) Injected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.injected
}

// Requests returns how many requests matched PathPrefix.
func (c *ChaosTransport) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// RoundTrip implements http.RoundTripper.
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !strings.HasPrefix(req.URL.Path, c.config.PathPrefix) {
		return c.next.RoundTrip(req)
	}

	c.mu.Lock()
	c.requests++
	inject := c.config.Mode != ChaosNone && (c.config.Failures < 0 || c.injected < c.config.Failures)
	if inject {
		c.injected++
	}
	c.mu.Unlock()

	if !inject {
		return c.next.RoundTrip(req)
	}
	if req.Body != nil {
		req.Body.Close()
	}

	switch c.config.Mode {
	case ChaosConnectionReset:
		return nil, &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
	case ChaosTimeout:
		return nil, timeoutError{}
	case ChaosServiceUnavailable:
		return response(req, http.StatusServiceUnavailable, nil, `{"message": "Service Unavailable", "error": 503}`), nil
	case ChaosRateLimited:
		return response(req, http.StatusTooManyRequests, http.Header{"Retry-After": {"0"}}, `{"message": "Too Many Requests", "error": 429}`), nil
	case ChaosInvalidJSON:
		return response(req, http.StatusOK, nil, `[{"kind": "Listing", "data": {"children": [`), nil
	case ChaosForbidden:
		return response(req, http.StatusForbidden, nil, `{"message": "Forbidden", "error": 403}`), nil
	}
	return c.next.RoundTrip(req)
}

func response(req *http.Request, status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

// SlowTransport delays every round trip by Delay or until the request
// context is done.
type SlowTransport struct {
	Next  http.RoundTripper
	Delay time.Duration
}

// RoundTrip implements http.RoundTripper.
func (s *SlowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-timer.C:
	}
	next := s.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
