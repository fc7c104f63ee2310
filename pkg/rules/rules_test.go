package rules

import (
	"testing"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/notice"
)

var now = time.UnixMilli(1700000000000)

func editorGraph() flow.Graph {
	return flow.Graph{
		Nodes: []flow.Node{
			{ID: "factory_F1", Data: flow.FactoryData{Label: "Plant", FactoryID: "F1", Undeletable: true}},
			{ID: "shopFloor_S1", Data: flow.ShopFloorData{Label: "Hall A", ShopFloorID: "S1"}},
			{ID: "asset_M1_1", Data: flow.AssetData{Label: "Mill", AssetID: "M1", Category: "Retrofit Machine"}},
			{ID: "asset_F1_2", Data: flow.AssetData{Label: "Filter 1", AssetID: "F1", Category: "Something Filter"}},
			{ID: "asset_F2_3", Data: flow.AssetData{Label: "Filter 2", AssetID: "F2", Category: "Something Filter"}},
			{ID: "asset_T1_4", Data: flow.AssetData{Label: "Tracker", AssetID: "T1", Category: "Something Tracker"}},
			{ID: "relation_hasFilter_001", Data: flow.RelationData{Label: "hasFilter_001"}},
			{ID: "relation_hasPart_001", Data: flow.RelationData{Label: "hasPart_001"}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "factory_F1", Target: "shopFloor_S1"},
		},
	}
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		target   string
		accepted bool
		severity notice.Severity
	}{
		{"shop floor to asset", "shopFloor_S1", "asset_M1_1", true, ""},
		{"asset to relation", "asset_M1_1", "relation_hasFilter_001", true, ""},
		{"relation to matching asset", "relation_hasFilter_001", "asset_F1_2", true, ""},
		{"relation to mismatched asset", "relation_hasFilter_001", "asset_T1_4", false, notice.Warn},
		{"factory to shop floor", "factory_F1", "shopFloor_S1", false, notice.Warn}, // already connected
		{"asset to shop floor", "asset_M1_1", "shopFloor_S1", false, notice.Warn},
		{"factory to asset", "factory_F1", "asset_M1_1", false, notice.Warn},
		{"self loop", "asset_M1_1", "asset_M1_1", false, notice.Warn},
		{"unknown target", "shopFloor_S1", "asset_X", false, notice.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := editorGraph()
			before := len(g.Edges)

			d := Connect(g, Connection{Source: tt.source, Target: tt.target}, now)

			if d.Accepted != tt.accepted {
				t.Fatalf("Accepted = %v, want %v (notice %v)", d.Accepted, tt.accepted, d.Notice)
			}
			if !d.Accepted {
				if d.Notice == nil || d.Notice.Severity != tt.severity {
					t.Errorf("Notice = %v, want severity %q", d.Notice, tt.severity)
				}
				if len(d.Graph.Edges) != before {
					t.Errorf("rejected connection changed edges: %d → %d", before, len(d.Graph.Edges))
				}
				return
			}
			if len(d.Graph.Edges) != before+1 {
				t.Errorf("edges = %d, want %d", len(d.Graph.Edges), before+1)
			}
			if !d.Graph.HasEdge(tt.source, tt.target) {
				t.Error("accepted edge missing from graph")
			}
			if len(g.Edges) != before {
				t.Error("Connect modified the input graph")
			}
		})
	}
}

func TestConnectFactoryToNewShopFloor(t *testing.T) {
	g := editorGraph().WithNodes(flow.Node{ID: "shopFloor_S2", Data: flow.ShopFloorData{ShopFloorID: "S2"}})

	d := Connect(g, Connection{Source: "factory_F1", Target: "shopFloor_S2"}, now)
	if !d.Accepted {
		t.Fatalf("rejected: %v", d.Notice)
	}
	if d.Edge.ID != "reactflow__edge-factory_F1-shopFloor_S2_1700000000000" {
		t.Errorf("Edge.ID = %q", d.Edge.ID)
	}
}

func TestSingleFanoutRelationRejectsSecondTarget(t *testing.T) {
	g := editorGraph()

	first := Connect(g, Connection{Source: "relation_hasFilter_001", Target: "asset_F1_2"}, now)
	if !first.Accepted {
		t.Fatalf("first connection rejected: %v", first.Notice)
	}
	if !first.Edge.Animated || first.Edge.Type != EdgeTypeSmoothStep {
		t.Errorf("relation edge = %+v, want animated smoothstep", first.Edge)
	}

	second := Connect(first.Graph, Connection{Source: "relation_hasFilter_001", Target: "asset_F2_3"}, now)
	if second.Accepted {
		t.Fatal("second connection from a single-fanout relation accepted")
	}
	if second.Notice.Summary != SummaryNotAllowed {
		t.Errorf("Summary = %q, want %q", second.Notice.Summary, SummaryNotAllowed)
	}
	if len(second.Graph.Edges) != len(first.Graph.Edges) {
		t.Error("rejected connection added an edge")
	}
}

func TestMachineRelationIsSingleFanout(t *testing.T) {
	g := editorGraph()
	g = g.ReplaceNode(flow.Node{ID: "relation_hasPart_001", Data: flow.RelationData{Label: "hasMachine_001", Class: flow.ClassMachine}})
	g = g.WithEdges(flow.Edge{ID: "x", Source: "relation_hasPart_001", Target: "asset_M1_1"})

	d := Connect(g, Connection{Source: "relation_hasPart_001", Target: "asset_F1_2"}, now)
	if d.Accepted {
		t.Error("machine relation accepted a second asset")
	}
}

func TestMismatchNoticeNamesBoth(t *testing.T) {
	d := Connect(editorGraph(), Connection{Source: "relation_hasFilter_001", Target: "asset_T1_4"}, now)
	if d.Accepted {
		t.Fatal("mismatched category accepted")
	}
	want := `an asset of category "Something Tracker" can only be connected through hasTracker`
	if d.Notice.Detail != want {
		t.Errorf("Detail = %q, want %q", d.Notice.Detail, want)
	}
}

func TestAssetToRelationRestampsRelation(t *testing.T) {
	d := Connect(editorGraph(), Connection{Source: "asset_M1_1", Target: "relation_hasPart_001"}, now)
	if !d.Accepted {
		t.Fatalf("rejected: %v", d.Notice)
	}
	rel, _ := d.Graph.Node("relation_hasPart_001")
	r := rel.Data.(flow.RelationData)
	if r.ParentID != "asset_M1_1" || r.AssetCategory != "Retrofit Machine" {
		t.Errorf("relation data = %+v", r)
	}
}
