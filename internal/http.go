package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"golang.org/x/time/rate"
)

// TokenProvider supplies bearer tokens for API requests.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// tokenInvalidator is implemented by providers that cache tokens.
type tokenInvalidator interface {
	Invalidate()
}

// Client manages communication with the Reddit API.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	tokens    TokenProvider
	logger    *slog.Logger

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// RateLimitConfig controls how requests are throttled before reaching Reddit.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64

	// maxErrorBodySize bounds how much of a failed response is read.
	maxErrorBodySize = 4096
)

// NewClient returns a new Reddit API client.
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, tokens TokenProvider, baseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		return nil, &pkgerrs.ConfigError{Field: "TokenProvider", Message: "token provider cannot be nil"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Client{
		client:    httpClient,
		BaseURL:   parsedURL,
		UserAgent: userAgent,
		tokens:    tokens,
		logger:    logger,
		limiter:   buildLimiter(*rateCfg),
	}, nil
}

// NewRequest creates an API request. A relative URL can be provided in path,
// in which case it is resolved relative to the BaseURL of the Client. Every
// request asks for unescaped JSON with raw_json=1.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: "NewRequest", URL: path, Err: err}
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("raw_json", "1")
	u.RawQuery = q.Encode()

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: "NewRequest", URL: u.String(), Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return req, nil
}

// Do sends an API request and JSON decodes a successful response into v.
// Non-2xx responses are returned as *errors.APIError.
func (c *Client) Do(req *http.Request, v any) error {
	body, err := c.DoRaw(req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &pkgerrs.ParseError{Operation: req.URL.Path, Message: "failed to decode response", Err: err}
	}
	return nil
}

// DoRaw sends an API request and returns the response body. A 401 drops
// the cached token; the request is then sent once more with a fresh one.
func (c *Client) DoRaw(req *http.Request) ([]byte, error) {
	body, err := c.send(req)
	var apiErr *pkgerrs.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return body, err
	}
	inv, ok := c.tokens.(tokenInvalidator)
	if !ok {
		return nil, err
	}
	inv.Invalidate()

	retry, rerr := c.reauthorize(req)
	if rerr != nil {
		return nil, rerr
	}
	c.logger.Debug("retrying with a fresh token", "path", req.URL.Path)
	body, err = c.send(retry)
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		inv.Invalidate()
	}
	return body, err
}

// reauthorize copies req with a newly fetched token and a rewound body.
func (c *Client) reauthorize(req *http.Request) (*http.Request, error) {
	token, err := c.tokens.GetToken(req.Context())
	if err != nil {
		return nil, err
	}
	retry := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.Path, Message: "request body cannot be replayed"}
		}
		if retry.Body, err = req.GetBody(); err != nil {
			return nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.Path, Err: err}
		}
	}
	retry.Header.Set("Authorization", "Bearer "+token)
	return retry, nil
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, &pkgerrs.RequestError{Operation: "wait", URL: req.URL.Path, Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	c.applyRateHeaders(resp)
	c.logger.Debug("reddit request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, newAPIError(resp.StatusCode, resp.Status, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.Path, Message: "failed to read response body", Err: err}
	}
	return body, nil
}

// newAPIError builds an APIError, picking up Reddit's JSON error fields
// when the body carries them.
func newAPIError(code int, status string, body []byte) *pkgerrs.APIError {
	apiErr := &pkgerrs.APIError{StatusCode: code, Message: status}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Reason  string          `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	if payload.Reason != "" {
		apiErr.ErrorCode = payload.Reason
	} else if s, err := strconv.Unquote(string(payload.Error)); err == nil {
		apiErr.ErrorCode = s
	}
	if payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		c.logger.Debug("waiting for rate limit window", "wait", waitUntil.Sub(now))
		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	remainingHeader := resp.Header.Get("X-Ratelimit-Remaining")
	resetHeader := resp.Header.Get("X-Ratelimit-Reset")
	if remainingHeader == "" || resetHeader == "" {
		return
	}

	remaining, errRemaining := strconv.ParseFloat(remainingHeader, ParseFloatBitSize)
	resetSeconds, errReset := strconv.ParseFloat(resetHeader, ParseFloatBitSize)
	if errRemaining != nil || errReset != nil || resetSeconds <= 0 {
		return
	}

	if remaining <= 1 {
		c.deferRequests(time.Duration(resetSeconds * float64(time.Second)))
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}

