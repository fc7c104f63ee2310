package editor

import (
	"reflect"
	"testing"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{`{"type":"connect","source":"a","target":"b"}`, Connect{Source: "a", Target: "b"}},
		{`{"type":"select","nodes":["n1"],"edges":["e1"]}`, Select{Nodes: []string{"n1"}, Edges: []string{"e1"}}},
		{`{"type":"delete"}`, DeleteSelection{}},
		{`{"type":"move","id":"n1","position":{"x":1,"y":2}}`, MoveNode{ID: "n1", Position: flow.Position{X: 1, Y: 2}}},
		{`{"type":"toggle","id":"n1"}`, ToggleExpand{ID: "n1"}},
		{`{"type":"undo"}`, Undo{}},
		{`{"type":"key","key":"ctrl+shift+z"}`, Redo{}},
		{`{"type":"layout","horizontal":true}`, Layout{Horizontal: true}},
		{`{"type":"shop_floors_deleted","ids":["S1"]}`, ShopFloorsDeleted{IDs: []string{"S1"}}},
		{
			`{"type":"drop","payload":{"item":{"id":"S1"},"type":"shopFloor"},"position":{"x":5,"y":6}}`,
			Drop{Payload: []byte(`{"item":{"id":"S1"},"type":"shopFloor"}`), Position: flow.Position{X: 5, Y: 6}},
		},
		{
			`{"type":"create_relations","assetNodeId":"asset_A1_1","names":["hasFilter"]}`,
			CreateRelations{AssetNodeID: "asset_A1_1", Names: []string{"hasFilter"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.want.Name(), func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeActionErrors(t *testing.T) {
	tests := []struct {
		in   string
		code apperr.Code
	}{
		{`not json`, apperr.ErrCodeInvalidPayload},
		{`{"type":"fly"}`, apperr.ErrCodeInvalidInput},
		{`{"type":"set_busy","busy":true}`, apperr.ErrCodeInvalidInput},
		{`{"type":"key","key":"ctrl+q"}`, apperr.ErrCodeInvalidInput},
		{`{"type":"move","id":5}`, apperr.ErrCodeInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := DecodeAction([]byte(tt.in))
			if apperr.GetCode(err) != tt.code {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}
