package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/persist"
)

func writeJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadGraphFile(t *testing.T) {
	g := persist.NewGraph("F1", "Plant")

	tests := []struct {
		name  string
		input any
	}{
		{"document", flow.Document{FactoryID: "F1", FactoryData: g}},
		{"bare graph", g},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := readGraphFile(writeJSON(t, tt.input))
			if err != nil {
				t.Fatalf("readGraphFile() error: %v", err)
			}
			if doc.FactoryID != "F1" {
				t.Errorf("FactoryID = %q, want F1", doc.FactoryID)
			}
			if _, ok := doc.FactoryData.Node(flow.FactoryNodeID("F1")); !ok {
				t.Error("factory node missing")
			}
		})
	}
}

func TestReadGraphFileInvalid(t *testing.T) {
	g := flow.Graph{Nodes: []flow.Node{
		{ID: "shopFloor_S1", Data: flow.ShopFloorData{Label: "Hall A", ShopFloorID: "S1"}},
	}}
	_, err := readGraphFile(writeJSON(t, g))
	if !errors.Is(err, flow.ErrMissingFactory) {
		t.Errorf("err = %v, want ErrMissingFactory", err)
	}

	if _, err := readGraphFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteGraphFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "plant.layout.json")
	doc := flow.Document{FactoryID: "F1", FactoryData: persist.NewGraph("F1", "Plant")}
	if err := writeGraphFile(path, doc); err != nil {
		t.Fatalf("writeGraphFile() error: %v", err)
	}
	got, err := readGraphFile(path)
	if err != nil {
		t.Fatalf("readGraphFile() error: %v", err)
	}
	if got.FactoryData.Fingerprint() != doc.FactoryData.Fingerprint() {
		t.Error("graph changed across write and read")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, output, suffix, want string
	}{
		{"plant.json", "", ".layout.json", "plant.layout.json"},
		{"dir/plant.json", "", ".svg", "dir/plant.svg"},
		{"plant.json", "custom.json", ".svg", "custom.json"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.output, tt.suffix); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.input, tt.output, tt.suffix, got, tt.want)
		}
	}
}

func TestLayoutPreset(t *testing.T) {
	for _, name := range []string{"", presetEditor, presetLoad} {
		if _, err := layoutPreset(name, false); err != nil {
			t.Errorf("layoutPreset(%q) error: %v", name, err)
		}
	}
	if _, err := layoutPreset("radial", false); err == nil {
		t.Error("expected error for unknown preset")
	}
}
