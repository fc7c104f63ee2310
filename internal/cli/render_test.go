package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/persist"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"dot", false},
		{"png", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if err := validateFormat(tt.format); (err != nil) != tt.wantErr {
				t.Errorf("validateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
		})
	}
}

// writeSample writes a factory with one shop floor, the second one hidden.
func writeSample(t *testing.T, dir string) string {
	t.Helper()
	g := persist.NewGraph("F1", "Plant")
	g = g.WithNodes(
		flow.Node{ID: "shopFloor_S1", Data: flow.ShopFloorData{Label: "Hall A", ShopFloorID: "S1"}},
		flow.Node{ID: "shopFloor_S2", Hidden: true, Data: flow.ShopFloorData{Label: "Hall B", ShopFloorID: "S2"}},
	)
	g = g.WithEdges(
		flow.Edge{ID: "e1", Source: flow.FactoryNodeID("F1"), Target: "shopFloor_S1"},
		flow.Edge{ID: "e2", Source: flow.FactoryNodeID("F1"), Target: "shopFloor_S2", Hidden: true},
	)
	data, err := json.Marshal(flow.Document{FactoryID: "F1", FactoryData: g})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "plant.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenderDOT(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	input := writeSample(t, t.TempDir())
	c := New(os.Stderr, LogInfo)

	if err := c.runRender(context.Background(), input, renderOpts{format: formatDOT}); err != nil {
		t.Fatalf("runRender: %v", err)
	}
	out, err := os.ReadFile(strings.TrimSuffix(input, ".json") + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	dot := string(out)
	if !strings.Contains(dot, `"Hall A"`) {
		t.Errorf("DOT missing visible shop floor:\n%s", dot)
	}
	if strings.Contains(dot, `"Hall B"`) {
		t.Errorf("DOT contains hidden shop floor:\n%s", dot)
	}
}
