package flow

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestRelationIDs(t *testing.T) {
	id := RelationNodeID("hasFilter", 7)
	if id != "relation_hasFilter_007" {
		t.Fatalf("RelationNodeID = %q", id)
	}

	name, seq, ok := ParseRelationID(id)
	if !ok || name != "hasFilter" || seq != 7 {
		t.Errorf("ParseRelationID(%q) = %q, %d, %v", id, name, seq, ok)
	}

	if _, _, ok := ParseRelationID("asset_A1_1"); ok {
		t.Error("ParseRelationID accepted an asset id")
	}

	if got := RelationType(id); got != "hasFilter" {
		t.Errorf("RelationType = %q, want hasFilter", got)
	}
}

func TestEdgeIDsEmbedTimestamp(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	if got := EdgeID("factory_F1", "shopFloor_S1", at); got != "reactflow__edge-factory_F1-shopFloor_S1_1700000000123" {
		t.Errorf("EdgeID = %q", got)
	}
	if got := RelationEdgeID("relation_hasFilter_001", at); got != "reactflow_edge-relation_hasFilter_001_1700000000123" {
		t.Errorf("RelationEdgeID = %q", got)
	}
}

func TestRelationCounters(t *testing.T) {
	nodes := []Node{
		{ID: "relation_hasFilter_001"},
		{ID: "relation_hasFilter_004"},
		{ID: "relation_hasCutter_002"},
	}

	c := CountRelations(nodes)
	if c["hasFilter"] != 4 || c["hasCutter"] != 2 {
		t.Fatalf("CountRelations = %v", c)
	}

	if got := c.Next("hasFilter", nodes); got != 5 {
		t.Errorf("Next(hasFilter) = %d, want 5", got)
	}
	if got := c.Next("hasTracker", nodes); got != 1 {
		t.Errorf("Next(hasTracker) = %d, want 1", got)
	}

	// Deleting the highest relation must not free its sequence.
	raised := c.With("hasFilter", 9)
	if got := raised.Next("hasFilter", nodes[:1]); got != 10 {
		t.Errorf("Next after With = %d, want 10", got)
	}
	if c["hasFilter"] != 4 {
		t.Error("With modified the receiver")
	}
}

func TestCategoryMatching(t *testing.T) {
	tests := []struct {
		category string
		label    string
		match    bool
	}{
		{"Something Filter", "hasFilter_001", true},
		{"Something Tracker", "hasFilter_001", false},
		{"Retrofit TRACKER", "hasTracker_012", true},
		{"Filter", "hasFilter_001", false},
	}

	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.label, func(t *testing.T) {
			got := CategoryKey(tt.category) == RelationKind(tt.label)
			if got != tt.match {
				t.Errorf("match(%q, %q) = %v, want %v", tt.category, tt.label, got, tt.match)
			}
		})
	}

	if got := RelationNameFor("tracker"); got != "hasTracker" {
		t.Errorf("RelationNameFor = %q", got)
	}
}

func TestSingleFanout(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"reserved filter", Node{ID: "relation_hasFilter_001", Data: RelationData{}}, true},
		{"reserved source", Node{ID: "relation_hasSource_003", Data: RelationData{}}, true},
		{"machine class", Node{ID: "relation_hasPart_001", Data: RelationData{Class: ClassMachine}}, true},
		{"open relation", Node{ID: "relation_hasPart_001", Data: RelationData{}}, false},
		{"asset", Node{ID: "asset_hasFilter", Data: AssetData{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SingleFanout(tt.node); got != tt.want {
				t.Errorf("SingleFanout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildRelationPayload(t *testing.T) {
	g := sampleGraph().WithNodes(
		Node{ID: "relation_hasCutter_001", Data: RelationData{Label: "hasCutter_001"}},
	).WithEdges(
		Edge{ID: "e5", Source: "asset_A1_1", Target: "relation_hasCutter_001"},
	)

	p := BuildRelationPayload(g)

	if got := p["A1"]["hasFilter"]; !slices.Equal(got, []string{"A2"}) {
		t.Errorf("payload[A1][hasFilter] = %v, want [A2]", got)
	}
	if got, ok := p["A1"]["hasCutter"]; !ok || len(got) != 0 {
		t.Errorf("payload[A1][hasCutter] = %v, %v, want empty list", got, ok)
	}
	if len(p) != 1 {
		t.Errorf("payload has %d assets, want 1", len(p))
	}

	if !BuildRelationPayload(sampleGraph().Skeleton()).Empty() {
		t.Error("skeleton payload should be empty")
	}
}

func TestNodeJSONKeepsUnknownData(t *testing.T) {
	in := `{"id":"asset_A1_1","type":"asset","position":{"x":10,"y":20},` +
		`"data":{"type":"asset","label":"Mill","id":"A1","asset_category":"Retrofit Machine","subFlowId":"line-1"}}`

	var n Node
	if err := json.Unmarshal([]byte(in), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	d, ok := n.Data.(AssetData)
	if !ok {
		t.Fatalf("Data = %T, want AssetData", n.Data)
	}
	if d.AssetID != "A1" || d.Category != "Retrofit Machine" {
		t.Errorf("AssetData = %+v", d)
	}
	if n.Extra["subFlowId"] != "line-1" {
		t.Errorf("Extra = %v, want subFlowId kept", n.Extra)
	}

	w := n.Wire()
	if w.Data["subFlowId"] != "line-1" || w.Data["type"] != "asset" || w.Type != "asset" {
		t.Errorf("Wire().Data = %v", w.Data)
	}
}

func TestNodeFromWireKindFallback(t *testing.T) {
	n, err := NodeFromWire(WireNode{ID: "shopFloor_S1", Data: map[string]any{"label": "Hall", "id": "S1"}})
	if err != nil {
		t.Fatalf("NodeFromWire: %v", err)
	}
	if n.Kind() != KindShopFloor {
		t.Errorf("Kind = %q, want shopFloor", n.Kind())
	}

	_, err = NodeFromWire(WireNode{ID: "group_1", Type: "subflow"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestDecodeDrop(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantErr   bool
		wantLabel string
	}{
		{"shop floor", `{"item":{"id":"S1","floorName":"Hall A"},"type":"shopFloor"}`, false, "Hall A"},
		{"asset", `{"item":{"id":"A1","product_name":"Mill"},"type":"asset"}`, false, "Mill"},
		{"unnamed", `{"item":{"id":"A1"},"type":"asset"}`, false, "Unnamed asset"},
		{"bad json", `{"item":`, true, ""},
		{"unknown type", `{"item":{"id":"X"},"type":"relation"}`, true, ""},
		{"missing id", `{"item":{},"type":"asset"}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeDrop([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeDrop() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidDrop) {
					t.Errorf("error %v does not wrap ErrInvalidDrop", err)
				}
				return
			}
			if got := p.Label(); got != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", got, tt.wantLabel)
			}
		})
	}
}
