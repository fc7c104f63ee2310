package persist

import (
	"context"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

// DocumentStore holds the canvas document of each factory.
type DocumentStore interface {
	// Fetch returns the stored document. found is false when none exists.
	Fetch(ctx context.Context, factoryID string) (doc flow.Document, found bool, err error)
	// Create stores a new document.
	Create(ctx context.Context, doc flow.Document) error
	// Update replaces an existing document.
	Update(ctx context.Context, doc flow.Document) error
}

// SourceOfTruth renders a factory's current topology from the entity store.
type SourceOfTruth interface {
	FetchCurrent(ctx context.Context, factoryID string) (flow.Document, error)
}

// AllocationStore records which assets are allocated to a factory, derived
// from the graph's edges.
type AllocationStore interface {
	Exists(ctx context.Context, factoryID string) (bool, error)
	Create(ctx context.Context, factoryID string, edges []flow.Edge) error
	Update(ctx context.Context, factoryID string, edges []flow.Edge) error
	// Delete removes the allocation record with the given id.
	Delete(ctx context.Context, recordID string) error
}

// RelationStore writes asset-to-asset relations.
type RelationStore interface {
	UpdateRelations(ctx context.Context, payload flow.RelationPayload) error
}

// ShopFloorStore mirrors the factory's edges onto its shop floors.
type ShopFloorStore interface {
	SyncEdges(ctx context.Context, factoryID string, edges []flow.Edge) error
}

// Stores bundles every remote the synchronizer talks to.
type Stores struct {
	Documents   DocumentStore
	Truth       SourceOfTruth
	Allocations AllocationStore
	Relations   RelationStore
	ShopFloors  ShopFloorStore
}

// AllocationRecordID is the id of a factory's allocation record.
func AllocationRecordID(factoryID string) string {
	return factoryID + ":allocated-assets"
}
