package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/flow/layout"
)

// readGraphFile reads a canvas document ({"factoryId", "factoryData"}) or a
// bare react-flow graph ({"nodes", "edges"}). The factory id falls back to
// the one carried by the factory node.
func readGraphFile(path string) (flow.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return flow.Document{}, err
	}
	var doc flow.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return flow.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Empty() {
		var g flow.Graph
		if err := json.Unmarshal(data, &g); err != nil {
			return flow.Document{}, fmt.Errorf("parse %s: %w", path, err)
		}
		doc.FactoryData = g
	}
	if doc.FactoryID == "" {
		if f, ok := doc.FactoryData.Factory(); ok {
			doc.FactoryID = f.EntityID()
		}
	}
	if err := doc.FactoryData.Validate(); err != nil {
		return flow.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeGraphFile writes doc as indented JSON.
func writeGraphFile(path string, doc flow.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// outputPath derives "<input><suffix>" when output is empty.
func outputPath(input, output, suffix string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// cacheProbe records whether the runner answered the last placement from
// its cache.
type cacheProbe struct {
	runner *layout.Runner
	cached bool
}

func (p *cacheProbe) Place(ctx context.Context, dot string) (layout.Placement, error) {
	pl, hit, err := p.runner.PlaceWithCacheInfo(ctx, dot)
	p.cached = hit
	return pl, err
}
