package flow

import (
	"errors"
	"slices"
	"testing"
)

func chain(ids ...string) Graph {
	var g Graph
	for _, id := range ids {
		g.Nodes = append(g.Nodes, Node{ID: id, Data: AssetData{Label: id, AssetID: id}})
	}
	for i := 0; i+1 < len(ids); i++ {
		g.Edges = append(g.Edges, Edge{ID: ids[i] + "-" + ids[i+1], Source: ids[i], Target: ids[i+1]})
	}
	return g
}

func sampleGraph() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "factory_F1", Position: Position{X: 250, Y: 70}, Data: FactoryData{Label: "Plant", FactoryID: "F1", Undeletable: true}},
			{ID: "shopFloor_S1", Data: ShopFloorData{Label: "Hall A", ShopFloorID: "S1"}},
			{ID: "asset_A1_1", Data: AssetData{Label: "Mill", AssetID: "A1", Category: "Retrofit Machine"}},
			{ID: "relation_hasFilter_001", Data: RelationData{Label: "hasFilter_001", ParentID: "asset_A1_1"}},
			{ID: "asset_A2_2", Data: AssetData{Label: "Filter", AssetID: "A2", Category: "Retrofit Filter"}},
		},
		Edges: []Edge{
			{ID: "e1", Source: "factory_F1", Target: "shopFloor_S1"},
			{ID: "e2", Source: "shopFloor_S1", Target: "asset_A1_1"},
			{ID: "e3", Source: "asset_A1_1", Target: "relation_hasFilter_001"},
			{ID: "e4", Source: "relation_hasFilter_001", Target: "asset_A2_2"},
		},
	}
}

func TestDescendants(t *testing.T) {
	tests := []struct {
		name  string
		graph Graph
		start string
		want  []string
	}{
		{"linear chain", chain("A", "B", "C", "D"), "A", []string{"B", "C", "D"}},
		{"leaf", chain("A", "B", "C", "D"), "D", nil},
		{"middle", chain("A", "B", "C", "D"), "B", []string{"C", "D"}},
		{"unknown start", chain("A", "B"), "Z", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.graph.Descendants(tt.start)
			slices.Sort(got)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Descendants(%q) = %v, want %v", tt.start, got, tt.want)
			}
		})
	}
}

func TestDescendantsCycle(t *testing.T) {
	g := chain("A", "B", "C").WithEdges(Edge{ID: "back", Source: "C", Target: "A"})

	got := g.Descendants("A")
	slices.Sort(got)
	want := []string{"A", "B", "C"}
	if !slices.Equal(got, want) {
		t.Errorf("Descendants(A) = %v, want %v", got, want)
	}
}

func TestGraphCopyOnWrite(t *testing.T) {
	g := sampleGraph()
	before := g.Fingerprint()

	_ = g.WithNodes(Node{ID: "shopFloor_S2", Data: ShopFloorData{ShopFloorID: "S2"}})
	_ = g.WithEdges(Edge{ID: "x", Source: "factory_F1", Target: "shopFloor_S2"})
	_ = g.WithoutNodes("asset_A1_1")
	_ = g.RemapEdges("asset_A1_1", "asset_A9")
	_ = g.SetHidden([]string{"asset_A2_2"}, true)

	if after := g.Fingerprint(); after != before {
		t.Error("graph changed after copy-on-write helpers")
	}
}

func TestWithoutNodesDropsIncidentEdges(t *testing.T) {
	g := sampleGraph().WithoutNodes("relation_hasFilter_001")

	if g.HasNode("relation_hasFilter_001") {
		t.Error("node still present")
	}
	if len(g.Edges) != 2 {
		t.Errorf("len(Edges) = %d, want 2", len(g.Edges))
	}
}

func TestSkeleton(t *testing.T) {
	g := sampleGraph().Skeleton()

	if len(g.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(g.Nodes))
	}
	for _, n := range g.Nodes {
		if !n.Undeletable() {
			t.Errorf("node %s kept, want only factory and shop floors", n.ID)
		}
	}
	if len(g.Edges) != 1 || g.Edges[0].ID != "e1" {
		t.Errorf("Edges = %v, want only e1", g.Edges)
	}
}

func TestTrivialEdges(t *testing.T) {
	if !(Graph{}).TrivialEdges() {
		t.Error("empty graph should be trivial")
	}
	if !sampleGraph().Skeleton().TrivialEdges() {
		t.Error("skeleton should be trivial")
	}
	if sampleGraph().TrivialEdges() {
		t.Error("full graph should not be trivial")
	}
}

func TestDedupe(t *testing.T) {
	g := Graph{Nodes: []Node{
		{ID: "a", Position: Position{X: 1}, Data: AssetData{AssetID: "a"}},
		{ID: "b", Data: AssetData{AssetID: "b"}},
		{ID: "a", Position: Position{X: 2}, Data: AssetData{AssetID: "a"}},
	}}

	got := g.Dedupe()
	if len(got.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(got.Nodes))
	}
	if got.Nodes[0].ID != "a" || got.Nodes[0].Position.X != 2 {
		t.Errorf("Nodes[0] = %+v, want a at x=2", got.Nodes[0])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		graph Graph
		want  error
	}{
		{"valid", sampleGraph(), nil},
		{"no factory", chain("A", "B"), ErrMissingFactory},
		{
			"two factories",
			sampleGraph().WithNodes(Node{ID: "factory_F2", Data: FactoryData{FactoryID: "F2"}}),
			ErrMultipleFactories,
		},
		{
			"duplicate id",
			sampleGraph().WithNodes(Node{ID: "asset_A1_1", Data: AssetData{AssetID: "A1"}}),
			ErrDuplicateNodeID,
		},
		{
			"dangling edge",
			sampleGraph().WithEdges(Edge{ID: "bad", Source: "factory_F1", Target: "ghost"}),
			ErrUnknownTargetNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSetHiddenHidesIncidentEdges(t *testing.T) {
	g := sampleGraph()
	hidden := g.SetHidden(g.Descendants("shopFloor_S1"), true)

	visible := hidden.Visible()
	if len(visible.Nodes) != 2 {
		t.Errorf("visible nodes = %d, want 2", len(visible.Nodes))
	}
	if len(visible.Edges) != 1 {
		t.Errorf("visible edges = %d, want 1", len(visible.Edges))
	}
}

func TestFingerprintIgnoresVisibility(t *testing.T) {
	g := sampleGraph()
	hidden := g.SetHidden(g.Descendants("shopFloor_S1"), true)

	if hidden.Fingerprint() != g.Fingerprint() {
		t.Error("hiding nodes changed the fingerprint")
	}
	if got := hidden.Expanded().Visible(); len(got.Nodes) != len(g.Nodes) || len(got.Edges) != len(g.Edges) {
		t.Errorf("Expanded() left hidden elements: %d/%d nodes visible", len(got.Nodes), len(g.Nodes))
	}
	if hidden.Visible().Fingerprint() == g.Fingerprint() {
		t.Error("removing nodes must change the fingerprint")
	}
}
