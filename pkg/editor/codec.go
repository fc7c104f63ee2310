package editor

import (
	"encoding/json"
	"fmt"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
)

// DecodeAction parses the JSON form of an action sent by a front end:
//
//	{"type": "connect", "source": "relation_hasFilter_001", "target": "asset_A2_2"}
//	{"type": "drop", "payload": {"item": {...}, "type": "shopFloor"}, "position": {"x": 10, "y": 20}}
//	{"type": "key", "key": "ctrl+z"}
//
// The type is the action's [Action.Name], or "key" for a keyboard shortcut.
// Load, MarkSaved and SetBusy are internal and cannot be decoded.
func DecodeAction(data []byte) (Action, error) {
	var env struct {
		Type string `json:"type"`
		Key  string `json:"key"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPayload, err, "decode action")
	}

	var (
		a   Action
		err error
	)
	switch env.Type {
	case "key":
		var ok bool
		if a, ok = ActionForKey(env.Key); !ok {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "unbound key %q", env.Key)
		}
		return a, nil
	case "drop":
		var d struct {
			Payload  json.RawMessage `json:"payload"`
			Position struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"position"`
		}
		err = json.Unmarshal(data, &d)
		drop := Drop{Payload: []byte(d.Payload)}
		drop.Position.X, drop.Position.Y = d.Position.X, d.Position.Y
		a = drop
	case "connect":
		a, err = decodeInto[Connect](data)
	case "select":
		a, err = decodeInto[Select](data)
	case "delete":
		a = DeleteSelection{}
	case "move":
		a, err = decodeInto[MoveNode](data)
	case "toggle":
		a, err = decodeInto[ToggleExpand](data)
	case "undo":
		a = Undo{}
	case "redo":
		a = Redo{}
	case "create_relations":
		a, err = decodeInto[CreateRelations](data)
	case "add_asset_from_relation":
		a, err = decodeInto[AddAssetFromRelation](data)
	case "add_assets_to_shop_floor":
		a, err = decodeInto[AddAssetsToShopFloor](data)
	case "shop_floor_created":
		a, err = decodeInto[ShopFloorCreated](data)
	case "shop_floors_deleted":
		a, err = decodeInto[ShopFloorsDeleted](data)
	case "layout":
		a, err = decodeInto[Layout](data)
	default:
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "unknown action type %q", env.Type)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPayload, err, "decode %s action", env.Type)
	}
	return a, nil
}

func decodeInto[T Action](data []byte) (Action, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%T: %w", v, err)
	}
	return v, nil
}
