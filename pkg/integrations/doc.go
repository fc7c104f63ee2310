// Package integrations provides the shared HTTP client for REST backends.
//
// # Overview
//
// Each backend gets its own subpackage built on [Client]:
//
//   - [factoryapi]: the factory backend (documents, allocations, relations,
//     shop floors)
//
// # Client Pattern
//
//	api, err := integrations.NewClient("https://backend.example.com/api",
//	    integrations.WithBearerToken(token),
//	    integrations.WithRateLimit(10, 5),
//	)
//	err = api.Patch(ctx, "/react-flow/F1", nil, doc)
//
// The client handles:
//   - JSON request and response bodies
//   - Default headers and bearer authentication
//   - Client-side pacing with golang.org/x/time/rate
//   - Retries for transient failures per [httputil.Policy] (none by default)
//   - Mapping of statuses onto [ErrNotFound], [ErrConflict],
//     [ErrUnauthorized] and [ErrNetwork], each also carrying an errors.Code
//
// [factoryapi]: github.com/matzehuels/factoryflow/pkg/integrations/factoryapi
package integrations
