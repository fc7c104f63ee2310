package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/httputil"
)

// Client provides shared HTTP functionality for the REST API clients.
// It resolves paths against a base URL, applies default headers, paces
// requests with a token bucket and retries transient failures according to
// its [httputil.Policy].
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	headers map[string]string
	limiter *rate.Limiter
	retry   httputil.Policy
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// instrumented.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		cp.Transport = httputil.Instrument(hc.Transport)
		c.http = &cp
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) { c.headers = headers }
}

// WithBearerToken sends "Authorization: Bearer <token>" when token is set.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token == "" {
			return
		}
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		c.headers["Authorization"] = "Bearer " + token
	}
}

// WithRateLimit allows rps requests per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithRetry sets the retry policy. The default is [httputil.NoRetry].
func WithRetry(p httputil.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if err := apperr.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "invalid base url %q", baseURL)
	}
	c := &Client{
		http:    httputil.NewClient(0),
		baseURL: u,
		retry:   httputil.NoRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Request describes one API call.
type Request struct {
	Method string
	Path   string     // joined to the base URL; segments must be escaped by the caller
	Query  url.Values // optional
	Body   any        // JSON-encoded when non-nil
	Expect []int      // accepted status codes; any 2xx when empty
}

// Do performs req and decodes a JSON response body into out when out is
// non-nil. Empty bodies leave out unchanged.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidPayload, err, "encode %s %s", req.Method, req.Path)
		}
	}

	err := httputil.Retry(ctx, c.retry, func() error {
		return c.do(ctx, req, payload, out)
	})
	var retryable *httputil.RetryableError
	if errors.As(err, &retryable) {
		return retryable.Err
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Wrap(apperr.ErrCodeTimeout, err, "rate limit wait")
		}
	}

	u := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidInput, err, "build %s %s", req.Method, req.Path)
	}
	hreq.Header.Set("Accept", "application/json")
	if payload != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		hreq.Header.Set(k, v)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		code := apperr.ErrCodeNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			code = apperr.ErrCodeTimeout
		}
		return &httputil.RetryableError{Err: apperr.Wrap(code, fmt.Errorf("%w: %v", ErrNetwork, err), "%s %s", req.Method, req.Path)}
	}
	defer resp.Body.Close()

	if err := checkStatus(hreq, resp, req.Expect); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &httputil.RetryableError{Err: apperr.Wrap(apperr.ErrCodeNetwork, err, "read %s %s", req.Method, req.Path)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPayload, err, "decode %s %s", req.Method, req.Path)
	}
	return nil
}

// Get performs a GET and decodes the JSON response into v.
func (c *Client) Get(ctx context.Context, path string, query url.Values, v any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, v)
}

// Post sends body as JSON and expects one of the given statuses.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any, expect ...int) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body, Expect: expect}, nil)
}

// Patch sends body as JSON.
func (c *Client) Patch(ctx context.Context, path string, query url.Values, body any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Query: query, Body: body}, nil)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Query: query}, nil)
}
