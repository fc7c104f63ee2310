package httputil

import (
	"net/http"
	"time"

	"github.com/matzehuels/factoryflow/pkg/observability"
)

// DefaultTimeout bounds a single request made by [NewClient]'s client.
const DefaultTimeout = 10 * time.Second

// NewClient returns an HTTP client with the given timeout (DefaultTimeout
// when zero) and an instrumented default transport.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout, Transport: Instrument(nil)}
}

// Instrument wraps rt (http.DefaultTransport when nil) so that each round
// trip is reported to the HTTP observability hooks.
func Instrument(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if _, ok := rt.(instrumented); ok {
		return rt
	}
	return instrumented{next: rt}
}

type instrumented struct {
	next http.RoundTripper
}

func (t instrumented) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path

	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, err
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))
	return resp, nil
}
