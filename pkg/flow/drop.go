package flow

import (
	"encoding/json"
	"errors"
	"fmt"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
)

// DropMIMEType is the drag-and-drop data type carrying a [DropPayload].
const DropMIMEType = "application/json"

// ErrInvalidDrop is returned by [DecodeDrop] for malformed payloads.
var ErrInvalidDrop = errors.New("invalid drop payload")

// DropItem is the catalog entry being dragged onto the canvas. Shop floors
// carry FloorName, assets carry ProductName and their category.
type DropItem struct {
	ID                string `json:"id"`
	ProductName       string `json:"product_name,omitempty"`
	FloorName         string `json:"floorName,omitempty"`
	AssetCategory     string `json:"asset_category,omitempty"`
	AssetSerialNumber string `json:"asset_serial_number,omitempty"`
}

// DropPayload is the JSON document placed on the drag data transfer.
type DropPayload struct {
	Item DropItem `json:"item"`
	Type Kind     `json:"type"`
}

// Label returns the product name, else the floor name, else
// "Unnamed <type>".
func (p DropPayload) Label() string {
	switch {
	case p.Item.ProductName != "":
		return p.Item.ProductName
	case p.Item.FloorName != "":
		return p.Item.FloorName
	default:
		return fmt.Sprintf("Unnamed %s", p.Type)
	}
}

// DecodeDrop parses a drop payload. Only shop floors and assets can be
// dropped.
func DecodeDrop(data []byte) (DropPayload, error) {
	var p DropPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return DropPayload{}, fmt.Errorf("%w: %v", ErrInvalidDrop, err)
	}
	if p.Type != KindShopFloor && p.Type != KindAsset {
		return DropPayload{}, fmt.Errorf("%w: unknown type %q", ErrInvalidDrop, p.Type)
	}
	validate := apperr.ValidateAssetID
	if p.Type == KindShopFloor {
		validate = apperr.ValidateShopFloorID
	}
	if err := validate(p.Item.ID); err != nil {
		return DropPayload{}, fmt.Errorf("%w: %v", ErrInvalidDrop, err)
	}
	return p, nil
}

// DefaultAssetStyle is the style given to assets dropped on the canvas.
func DefaultAssetStyle() map[string]any {
	return map[string]any{"backgroundColor": "", "border": "none", "borderRadius": 10}
}
