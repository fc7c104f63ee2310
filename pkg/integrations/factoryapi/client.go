package factoryapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/httputil"
	"github.com/matzehuels/factoryflow/pkg/integrations"
	"github.com/matzehuels/factoryflow/pkg/persist"
)

// Options configures a [Client]. The zero value is usable.
type Options struct {
	Token      string        // bearer token; omitted when empty
	Timeout    time.Duration // per request; httputil.DefaultTimeout when zero
	RateLimit  float64       // requests per second; unlimited when zero
	Burst      int
	Retry      httputil.Policy
	HTTPClient *http.Client // overrides Timeout
}

// Client talks to the factory backend.
type Client struct {
	api *integrations.Client
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	hc := opts.HTTPClient
	if hc == nil {
		hc = httputil.NewClient(opts.Timeout)
	}
	api, err := integrations.NewClient(baseURL,
		integrations.WithHTTPClient(hc),
		integrations.WithHeaders(map[string]string{"User-Agent": "factoryflow"}),
		integrations.WithBearerToken(opts.Token),
		integrations.WithRateLimit(opts.RateLimit, opts.Burst),
		integrations.WithRetry(opts.Retry),
	)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.api.BaseURL() }

// Stores returns every adapter bundled for [persist.New].
func (c *Client) Stores() persist.Stores {
	return persist.Stores{
		Documents:   c.Documents(),
		Truth:       c.Truth(),
		Allocations: c.Allocations(),
		Relations:   c.Relations(),
		ShopFloors:  c.ShopFloors(),
	}
}

// Documents returns the document store adapter.
func (c *Client) Documents() *Documents { return &Documents{api: c.api} }

// Truth returns the source-of-truth adapter.
func (c *Client) Truth() *Truth { return &Truth{api: c.api} }

// Allocations returns the allocation store adapter.
func (c *Client) Allocations() *Allocations { return &Allocations{api: c.api} }

// Relations returns the relation store adapter.
func (c *Client) Relations() *Relations { return &Relations{api: c.api} }

// ShopFloors returns the shop floor adapter.
func (c *Client) ShopFloors() *ShopFloors { return &ShopFloors{api: c.api} }

var (
	_ persist.DocumentStore   = (*Documents)(nil)
	_ persist.SourceOfTruth   = (*Truth)(nil)
	_ persist.AllocationStore = (*Allocations)(nil)
	_ persist.RelationStore   = (*Relations)(nil)
	_ persist.ShopFloorStore  = (*ShopFloors)(nil)
)

// =============================================================================
// Documents
// =============================================================================

// Documents is the canvas document store behind /react-flow.
type Documents struct {
	api *integrations.Client
}

// Fetch returns the stored document. A 404 or an empty object reports
// found=false.
func (d *Documents) Fetch(ctx context.Context, factoryID string) (flow.Document, bool, error) {
	var raw documentResponse
	err := d.api.Get(ctx, "/react-flow/"+url.PathEscape(factoryID), nil, &raw)
	if errors.Is(err, integrations.ErrNotFound) {
		return flow.Document{}, false, nil
	}
	if err != nil {
		return flow.Document{}, false, err
	}
	if raw.FactoryData == nil {
		return flow.Document{}, false, nil
	}
	doc := flow.Document{FactoryID: raw.FactoryID, FactoryData: *raw.FactoryData}
	if doc.FactoryID == "" {
		doc.FactoryID = factoryID
	}
	return doc, true, nil
}

// Create posts a new document and expects 201 Created.
func (d *Documents) Create(ctx context.Context, doc flow.Document) error {
	return d.api.Post(ctx, "/react-flow", nil, doc, http.StatusCreated)
}

// Update patches the document of doc.FactoryID.
func (d *Documents) Update(ctx context.Context, doc flow.Document) error {
	return d.api.Patch(ctx, "/react-flow/"+url.PathEscape(doc.FactoryID), nil, doc)
}

type documentResponse struct {
	FactoryID   string      `json:"factoryId"`
	FactoryData *flow.Graph `json:"factoryData"`
}

// =============================================================================
// Source of truth
// =============================================================================

// Truth renders a factory from the entity store.
type Truth struct {
	api *integrations.Client
}

// FetchCurrent returns the entity store's current view of the factory.
func (t *Truth) FetchCurrent(ctx context.Context, factoryID string) (flow.Document, error) {
	var raw documentResponse
	if err := t.api.Get(ctx, "/react-flow/react-flow-update/"+url.PathEscape(factoryID), nil, &raw); err != nil {
		return flow.Document{}, err
	}
	doc := flow.Document{FactoryID: factoryID}
	if raw.FactoryData != nil {
		doc.FactoryData = *raw.FactoryData
	}
	return doc, nil
}

// =============================================================================
// Allocations
// =============================================================================

// Allocations is the allocated-asset store. Its bodies are the graph's
// edges.
type Allocations struct {
	api *integrations.Client
}

// Exists reports whether the factory has allocation records.
func (a *Allocations) Exists(ctx context.Context, factoryID string) (bool, error) {
	var records []map[string]any
	err := a.api.Get(ctx, "/allocated-asset/"+url.PathEscape(factoryID), nil, &records)
	if errors.Is(err, integrations.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// Create posts the allocation derived from edges and expects 201 Created.
func (a *Allocations) Create(ctx context.Context, factoryID string, edges []flow.Edge) error {
	return a.api.Post(ctx, "/allocated-asset", factoryQuery(factoryID), nonNil(edges), http.StatusCreated)
}

// Update replaces the allocation derived from edges.
func (a *Allocations) Update(ctx context.Context, factoryID string, edges []flow.Edge) error {
	return a.api.Patch(ctx, "/allocated-asset", factoryQuery(factoryID), nonNil(edges))
}

// Delete removes the allocation record recordID (see
// [persist.AllocationRecordID]).
func (a *Allocations) Delete(ctx context.Context, recordID string) error {
	return a.api.Delete(ctx, "/allocated-asset", url.Values{"id": {recordID}})
}

func factoryQuery(factoryID string) url.Values {
	return url.Values{"factory-id": {factoryID}}
}

// nonNil keeps an empty edge list encoded as [] rather than null.
func nonNil(edges []flow.Edge) []flow.Edge {
	if edges == nil {
		return []flow.Edge{}
	}
	return edges
}

// =============================================================================
// Relations and shop floors
// =============================================================================

// Relations writes asset relations.
type Relations struct {
	api *integrations.Client
}

// UpdateRelations patches the relations named in payload.
func (r *Relations) UpdateRelations(ctx context.Context, payload flow.RelationPayload) error {
	return r.api.Patch(ctx, "/asset/update-relation", nil, payload)
}

// ShopFloors mirrors factory edges onto shop floors.
type ShopFloors struct {
	api *integrations.Client
}

// SyncEdges sends the factory's edges to the shop floor service.
func (s *ShopFloors) SyncEdges(ctx context.Context, factoryID string, edges []flow.Edge) error {
	return s.api.Patch(ctx, "/shop-floor/update-react", url.Values{"id": {factoryID}}, nonNil(edges))
}
