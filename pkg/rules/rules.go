// Package rules validates connection attempts in the flow editor.
//
// [Connect] decides whether an edge from source to target may be added and,
// if so, returns the graph with the edge in place. Rules are applied in a
// fixed order:
//
//  1. A single-fanout relation (hasCutter, hasFilter, hasTracker, hasSource,
//     or any relation of class "machine") that already has an outgoing edge
//     is rejected.
//  2. shopFloor → asset is accepted.
//  3. asset → relation is accepted and the relation is re-stamped with the
//     asset's category.
//  4. relation → asset is accepted only when the asset category matches the
//     relation kind ("Retrofit Filter" for "hasFilter_001").
//  5. factory → shopFloor is accepted.
//  6. Everything else is an invalid connection.
//
// A rejection never changes the graph.
package rules

import (
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/notice"
)

// EdgeTypeSmoothStep is the edge type of relation → asset edges.
const EdgeTypeSmoothStep = "smoothstep"

// Notice summaries.
const (
	SummaryNotAllowed           = "Operation not allowed"
	SummaryConnectionNotAllowed = "Connection not allowed"
)

// Connection is an attempted edge.
type Connection struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Decision is the outcome of [Connect].
type Decision struct {
	Accepted bool
	Graph    flow.Graph     // the resulting graph; the input graph when rejected
	Edge     flow.Edge      // the added edge when accepted
	Notice   *notice.Notice // set on rejection
}

func reject(g flow.Graph, n notice.Notice) Decision {
	return Decision{Graph: g, Notice: &n}
}

// Connect applies the connection rules to c on g. at stamps the new edge id.
func Connect(g flow.Graph, c Connection, at time.Time) Decision {
	src, okSrc := g.Node(c.Source)
	dst, okDst := g.Node(c.Target)

	if okSrc && flow.SingleFanout(src) && len(g.OutEdges(src.ID)) > 0 {
		return reject(g, notice.Warnf(SummaryNotAllowed,
			"relation %s can be connected to one asset only", src.Label()))
	}
	if !okSrc || !okDst {
		return reject(g, notice.Errorf(SummaryConnectionNotAllowed,
			"unknown node in connection %s → %s", c.Source, c.Target))
	}
	if src.ID == dst.ID {
		return invalid(g)
	}
	if g.HasEdge(src.ID, dst.ID) {
		return reject(g, notice.Warnf(SummaryConnectionNotAllowed,
			"%s is already connected to %s", src.Label(), dst.Label()))
	}

	switch s := src.Data.(type) {
	case flow.ShopFloorData:
		if dst.Kind() == flow.KindAsset {
			return accept(g, newEdge(src.ID, dst.ID, at))
		}
	case flow.AssetData:
		if d, ok := dst.Data.(flow.RelationData); ok {
			return restamp(g, src, s, dst, d, at)
		}
	case flow.RelationData:
		if d, ok := dst.Data.(flow.AssetData); ok {
			return matchCategory(g, src, s, dst, d, at)
		}
	case flow.FactoryData:
		if dst.Kind() == flow.KindShopFloor {
			return accept(g, newEdge(src.ID, dst.ID, at))
		}
	}
	return invalid(g)
}

func invalid(g flow.Graph) Decision {
	return reject(g, notice.Warnf(SummaryConnectionNotAllowed, "invalid connection type"))
}

func newEdge(source, target string, at time.Time) flow.Edge {
	return flow.Edge{ID: flow.EdgeID(source, target, at), Source: source, Target: target}
}

func accept(g flow.Graph, e flow.Edge) Decision {
	return Decision{Accepted: true, Graph: g.WithEdges(e), Edge: e}
}

// restamp copies the asset's classification onto the relation before linking
// them.
func restamp(g flow.Graph, asset flow.Node, a flow.AssetData, rel flow.Node, r flow.RelationData, at time.Time) Decision {
	if r.ParentID == "" {
		r.ParentID = asset.ID
	}
	if r.AssetCategory == "" {
		r.AssetCategory = a.Category
	}
	rel.Data = r
	return accept(g.ReplaceNode(rel), newEdge(asset.ID, rel.ID, at))
}

func matchCategory(g flow.Graph, rel flow.Node, r flow.RelationData, asset flow.Node, a flow.AssetData, at time.Time) Decision {
	category := flow.CategoryKey(a.Category)
	if category != flow.RelationKind(r.Label) {
		return reject(g, notice.Warnf(SummaryConnectionNotAllowed,
			"an asset of category %q can only be connected through %s",
			a.Category, flow.RelationNameFor(category)))
	}

	// Freeze the relation id and point every edge at it.
	frozen := rel.ID
	g = g.RemapEdges(rel.ID, frozen)
	e := flow.Edge{
		ID:       flow.RelationEdgeID(frozen, at),
		Source:   frozen,
		Target:   asset.ID,
		Type:     EdgeTypeSmoothStep,
		Animated: true,
	}
	return accept(g, e)
}
