package flow

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Data keys of the react-flow node payload.
const (
	keyLabel            = "label"
	keyType             = "type"
	keyID               = "id"
	keyParentID         = "parentId"
	keyClass            = "class"
	keyAssetCategory    = "asset_category"
	keyRelationshipType = "relationship_type"
	keySerialNumber     = "asset_serial_number"
	keyUndeletable      = "undeletable"
)

// WireNode is the react-flow encoding of a [Node] as stored by the document
// store and exchanged over REST.
type WireNode struct {
	ID       string         `json:"id" bson:"id"`
	Type     string         `json:"type" bson:"type"`
	Position Position       `json:"position" bson:"position"`
	Data     map[string]any `json:"data" bson:"data"`
	Style    map[string]any `json:"style,omitempty" bson:"style,omitempty"`
	Hidden   bool           `json:"hidden,omitempty" bson:"hidden,omitempty"`
}

// WireGraph is the react-flow encoding of a [Graph].
type WireGraph struct {
	Nodes []WireNode `json:"nodes" bson:"nodes"`
	Edges []Edge     `json:"edges" bson:"edges"`
}

// Wire converts the node to its react-flow encoding.
func (n Node) Wire() WireNode {
	data := maps.Clone(n.Extra)
	if data == nil {
		data = map[string]any{}
	}
	data[keyType] = string(n.Kind())
	switch d := n.Data.(type) {
	case FactoryData:
		data[keyLabel] = d.Label
		data[keyID] = d.FactoryID
		if d.Undeletable {
			data[keyUndeletable] = true
		}
	case ShopFloorData:
		data[keyLabel] = d.Label
		data[keyID] = d.ShopFloorID
	case AssetData:
		data[keyLabel] = d.Label
		data[keyID] = d.AssetID
		setIf(data, keyAssetCategory, d.Category)
		setIf(data, keySerialNumber, d.SerialNumber)
	case RelationData:
		data[keyLabel] = d.Label
		setIf(data, keyClass, d.Class)
		setIf(data, keyParentID, d.ParentID)
		setIf(data, keyAssetCategory, d.AssetCategory)
		setIf(data, keyRelationshipType, d.RelationshipType)
	}
	return WireNode{
		ID:       n.ID,
		Type:     string(n.Kind()),
		Position: n.Position,
		Data:     data,
		Style:    maps.Clone(n.Style),
		Hidden:   n.Hidden,
	}
}

// NodeFromWire decodes a react-flow node. The kind is taken from data.type,
// falling back to the node type and then to the id prefix.
func NodeFromWire(w WireNode) (Node, error) {
	if w.ID == "" {
		return Node{}, ErrInvalidNodeID
	}
	extra := maps.Clone(w.Data)
	if extra == nil {
		extra = map[string]any{}
	}
	take := func(key string) string {
		v, ok := extra[key]
		if !ok {
			return ""
		}
		delete(extra, key)
		return stringValue(v)
	}

	kind := Kind(take(keyType))
	if !kind.Valid() {
		kind = Kind(w.Type)
	}
	if !kind.Valid() {
		kind = kindFromID(w.ID)
	}

	n := Node{
		ID:       w.ID,
		Position: w.Position,
		Style:    maps.Clone(w.Style),
		Hidden:   w.Hidden,
	}
	switch kind {
	case KindFactory:
		d := FactoryData{Label: take(keyLabel), FactoryID: take(keyID)}
		if v, ok := extra[keyUndeletable].(bool); ok {
			d.Undeletable = v
			delete(extra, keyUndeletable)
		}
		n.Data = d
	case KindShopFloor:
		n.Data = ShopFloorData{Label: take(keyLabel), ShopFloorID: take(keyID)}
	case KindAsset:
		n.Data = AssetData{
			Label:        take(keyLabel),
			AssetID:      take(keyID),
			Category:     take(keyAssetCategory),
			SerialNumber: take(keySerialNumber),
		}
	case KindRelation:
		n.Data = RelationData{
			Label:            take(keyLabel),
			Class:            take(keyClass),
			ParentID:         take(keyParentID),
			AssetCategory:    take(keyAssetCategory),
			RelationshipType: take(keyRelationshipType),
		}
	default:
		return Node{}, fmt.Errorf("%w: node %q has type %q", ErrUnknownKind, w.ID, w.Type)
	}
	if len(extra) > 0 {
		n.Extra = extra
	}
	return n, nil
}

// MarshalJSON encodes the node in react-flow form.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Wire())
}

// UnmarshalJSON decodes a react-flow node.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w WireNode
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	decoded, err := NodeFromWire(w)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}

// Wire converts the graph to its react-flow encoding.
func (g Graph) Wire() WireGraph {
	w := WireGraph{
		Nodes: make([]WireNode, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		w.Nodes[i] = n.Wire()
	}
	for i, e := range g.Edges {
		w.Edges[i] = e.Clone()
	}
	return w
}

// GraphFromWire decodes a react-flow graph.
func GraphFromWire(w WireGraph) (Graph, error) {
	g := Graph{
		Nodes: make([]Node, 0, len(w.Nodes)),
		Edges: make([]Edge, 0, len(w.Edges)),
	}
	for _, wn := range w.Nodes {
		n, err := NodeFromWire(wn)
		if err != nil {
			return Graph{}, err
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range w.Edges {
		g.Edges = append(g.Edges, e.Clone())
	}
	return g, nil
}

func kindFromID(id string) Kind {
	prefix, _, _ := strings.Cut(id, "_")
	return Kind(prefix)
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
