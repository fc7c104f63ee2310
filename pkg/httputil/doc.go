// Package httputil provides the HTTP plumbing shared by the REST clients.
//
// # Overview
//
//   - [Retry]: re-run an operation on transient failures, with exponential
//     backoff
//   - [Instrument]: wrap a transport so every request reports to the
//     observability hooks
//   - [NewClient]: an *http.Client with a timeout and an instrumented
//     transport
//
// # Retry
//
// Only errors wrapped in [RetryableError] are retried. The default [Policy]
// makes a single attempt, so remote writes are never repeated unless the
// caller opts in:
//
//	err := httputil.Retry(ctx, httputil.Policy{Attempts: 3, Delay: time.Second}, func() error {
//	    return client.Do(ctx, req)
//	})
//
// # Instrumentation
//
// [Instrument] calls [observability.HTTP] before and after each round trip.
// Install a metrics registry with prom.NewRegistry().Install() to export
// request counts and latencies.
package httputil
