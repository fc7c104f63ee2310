package editor

import (
	"github.com/matzehuels/factoryflow/pkg/flow"
)

// Action is an input to [Reduce]. The set of actions is closed.
type Action interface {
	// Name identifies the action in logs and metrics.
	Name() string
	action()
}

// Load replaces the graph with one read from the document store and starts a
// new history. Persisted is the fingerprint of the stored graph when Graph
// is an unsaved draft; when empty, Graph itself counts as persisted.
type Load struct {
	FactoryID string
	Graph     flow.Graph
	Persisted string
}

// Connect attempts an edge from Source to Target.
type Connect struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Drop places a dragged catalog item on the canvas. Payload is the raw JSON
// from the drag data transfer.
type Drop struct {
	Payload  []byte        `json:"payload"`
	Position flow.Position `json:"position"`
}

// Select replaces the selection.
type Select struct {
	Nodes []string `json:"nodes"`
	Edges []string `json:"edges"`
}

// DeleteSelection deletes the selected nodes and edges that may be deleted.
type DeleteSelection struct{}

// MoveNode sets a node's position.
type MoveNode struct {
	ID       string        `json:"id"`
	Position flow.Position `json:"position"`
}

// ToggleExpand hides or shows every descendant of a node.
type ToggleExpand struct {
	ID string `json:"id"`
}

// Undo restores the previous snapshot.
type Undo struct{}

// Redo restores the next snapshot.
type Redo struct{}

// CreateRelations adds one relation node per name below an asset.
type CreateRelations struct {
	AssetNodeID      string   `json:"assetNodeId"`
	Names            []string `json:"names"`
	Class            string   `json:"class,omitempty"`
	Category         string   `json:"category,omitempty"`
	RelationshipType string   `json:"relationshipType,omitempty"`
}

// AssetRef describes an asset entity to place on the canvas.
type AssetRef struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Category     string `json:"category,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

// AddAssetFromRelation links an asset as the target of a relation node.
type AddAssetFromRelation struct {
	RelationID string   `json:"relationId"`
	Asset      AssetRef `json:"asset"`
}

// AddAssetsToShopFloor links assets below a shop floor.
type AddAssetsToShopFloor struct {
	ShopFloorID string     `json:"shopFloorId"`
	Assets      []AssetRef `json:"assets"`
}

// ShopFloorCreated adds a node for a shop floor created elsewhere.
type ShopFloorCreated struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ShopFloorsDeleted removes nodes for shop floors deleted elsewhere.
type ShopFloorsDeleted struct {
	IDs []string `json:"ids"`
}

// Layout re-runs the editor layout in the given direction.
type Layout struct {
	Horizontal bool `json:"horizontal"`
}

// MarkSaved records the current graph as persisted.
type MarkSaved struct{}

// SetBusy raises or clears the busy overlay.
type SetBusy struct {
	Busy bool `json:"busy"`
}

func (Load) Name() string                 { return "load" }
func (Connect) Name() string              { return "connect" }
func (Drop) Name() string                 { return "drop" }
func (Select) Name() string               { return "select" }
func (DeleteSelection) Name() string      { return "delete" }
func (MoveNode) Name() string             { return "move" }
func (ToggleExpand) Name() string         { return "toggle" }
func (Undo) Name() string                 { return "undo" }
func (Redo) Name() string                 { return "redo" }
func (CreateRelations) Name() string      { return "create_relations" }
func (AddAssetFromRelation) Name() string { return "add_asset_from_relation" }
func (AddAssetsToShopFloor) Name() string { return "add_assets_to_shop_floor" }
func (ShopFloorCreated) Name() string     { return "shop_floor_created" }
func (ShopFloorsDeleted) Name() string    { return "shop_floors_deleted" }
func (Layout) Name() string               { return "layout" }
func (MarkSaved) Name() string            { return "mark_saved" }
func (SetBusy) Name() string              { return "set_busy" }

func (Load) action()                 {}
func (Connect) action()              {}
func (Drop) action()                 {}
func (Select) action()               {}
func (DeleteSelection) action()      {}
func (MoveNode) action()             {}
func (ToggleExpand) action()         {}
func (Undo) action()                 {}
func (Redo) action()                 {}
func (CreateRelations) action()      {}
func (AddAssetFromRelation) action() {}
func (AddAssetsToShopFloor) action() {}
func (ShopFloorCreated) action()     {}
func (ShopFloorsDeleted) action()    {}
func (Layout) action()               {}
func (MarkSaved) action()            {}
func (SetBusy) action()              {}

// mutates reports whether a is blocked while the editor is busy.
func mutates(a Action) bool {
	switch a.(type) {
	case Load, Select, MarkSaved, SetBusy:
		return false
	default:
		return true
	}
}

// =============================================================================
// Keyboard
// =============================================================================

// Key names as reported by terminal and browser front ends.
const (
	KeyUndo   = "ctrl+z"
	KeyRedo   = "ctrl+shift+z"
	KeyDelete = "backspace"
)

// ActionForKey maps a keyboard shortcut to its action.
func ActionForKey(key string) (Action, bool) {
	switch key {
	case KeyUndo:
		return Undo{}, true
	case KeyRedo:
		return Redo{}, true
	case KeyDelete:
		return DeleteSelection{}, true
	default:
		return nil, false
	}
}
