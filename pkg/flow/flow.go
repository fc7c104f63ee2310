package flow

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned when a node has an empty id.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.Validate] when two nodes share
	// an id.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned when an edge source is not in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned when an edge target is not in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrMissingFactory is returned by [Graph.Validate] when no factory node
	// exists.
	ErrMissingFactory = errors.New("graph has no factory node")

	// ErrMultipleFactories is returned by [Graph.Validate] when more than one
	// factory node exists.
	ErrMultipleFactories = errors.New("graph has more than one factory node")

	// ErrUnknownKind is returned when decoding a node whose type is not one
	// of the four known kinds.
	ErrUnknownKind = errors.New("unknown node kind")
)

// =============================================================================
// Kinds
// =============================================================================

// Kind identifies the variant of a node.
type Kind string

const (
	KindFactory   Kind = "factory"
	KindShopFloor Kind = "shopFloor"
	KindAsset     Kind = "asset"
	KindRelation  Kind = "relation"
)

// Kinds lists every node kind.
var Kinds = []Kind{KindFactory, KindShopFloor, KindAsset, KindRelation}

// Valid reports whether k is one of the four node kinds.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// =============================================================================
// Node data variants
// =============================================================================

// NodeData is the kind-specific payload of a node. It is implemented only by
// [FactoryData], [ShopFloorData], [AssetData] and [RelationData].
type NodeData interface {
	Kind() Kind
	DisplayLabel() string
	sealed()
}

// FactoryData is the payload of the root node.
type FactoryData struct {
	Label       string
	FactoryID   string
	Undeletable bool
}

// ShopFloorData is the payload of a shop floor node.
type ShopFloorData struct {
	Label       string
	ShopFloorID string
}

// AssetData is the payload of an asset node. Category is the full category
// string ("Retrofit Filter"); see [CategoryKey].
type AssetData struct {
	Label        string
	AssetID      string
	Category     string
	SerialNumber string
}

// RelationData is the payload of a relation node. Label carries the kind and
// sequence ("hasFilter_001"); ParentID is the node id of the owning asset.
type RelationData struct {
	Label            string
	Class            string
	ParentID         string
	AssetCategory    string
	RelationshipType string
}

func (FactoryData) Kind() Kind   { return KindFactory }
func (ShopFloorData) Kind() Kind { return KindShopFloor }
func (AssetData) Kind() Kind     { return KindAsset }
func (RelationData) Kind() Kind  { return KindRelation }

func (d FactoryData) DisplayLabel() string   { return d.Label }
func (d ShopFloorData) DisplayLabel() string { return d.Label }
func (d AssetData) DisplayLabel() string     { return d.Label }
func (d RelationData) DisplayLabel() string  { return d.Label }

func (FactoryData) sealed()   {}
func (ShopFloorData) sealed() {}
func (AssetData) sealed()     {}
func (RelationData) sealed()  {}

// =============================================================================
// Node and Edge
// =============================================================================

// Position is the top-left corner of a node on the canvas.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Node is a vertex of the flow graph.
//
// The zero value is not usable; ID and Data must be set.
type Node struct {
	ID       string
	Position Position
	Data     NodeData
	Style    map[string]any
	Hidden   bool
	Extra    map[string]any // data keys not covered by Data
}

// Kind returns the kind of the node's data, or "" if Data is nil.
func (n Node) Kind() Kind {
	if n.Data == nil {
		return ""
	}
	return n.Data.Kind()
}

// Label returns the display label of the node.
func (n Node) Label() string {
	if n.Data == nil {
		return n.ID
	}
	return n.Data.DisplayLabel()
}

// EntityID returns the id of the remote entity the node stands for (factory,
// shop floor or asset id). Relation nodes have none.
func (n Node) EntityID() string {
	switch d := n.Data.(type) {
	case FactoryData:
		return d.FactoryID
	case ShopFloorData:
		return d.ShopFloorID
	case AssetData:
		return d.AssetID
	default:
		return ""
	}
}

// Undeletable reports whether the editor refuses to delete the node.
// Factory and shop floor nodes are never deleted from the canvas.
func (n Node) Undeletable() bool {
	k := n.Kind()
	return k == KindFactory || k == KindShopFloor
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Style = maps.Clone(n.Style)
	n.Extra = maps.Clone(n.Extra)
	return n
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string         `json:"id" bson:"id"`
	Source   string         `json:"source" bson:"source"`
	Target   string         `json:"target" bson:"target"`
	Type     string         `json:"type,omitempty" bson:"type,omitempty"`
	Data     map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Animated bool           `json:"animated,omitempty" bson:"animated,omitempty"`
	Hidden   bool           `json:"hidden,omitempty" bson:"hidden,omitempty"`
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	e.Data = maps.Clone(e.Data)
	return e
}

// Document is the payload stored in the document store for one factory.
type Document struct {
	FactoryID   string `json:"factoryId"`
	FactoryData Graph  `json:"factoryData"`
}

// Empty reports whether the document carries no graph.
func (d Document) Empty() bool {
	return len(d.FactoryData.Nodes) == 0 && len(d.FactoryData.Edges) == 0
}
