package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/goccy/go-graphviz"
)

// formatDOT asks graphviz for DOT annotated with pos and bb attributes.
const formatDOT graphviz.Format = "dot"

// Point is a position in canvas pixels, y growing downwards.
type Point struct {
	X, Y float64
}

// Placement is the result of laying out a DOT graph: node centers keyed by
// DOT node name and the size of the drawing.
type Placement struct {
	Width, Height float64
	Centers       map[string]Point
}

// Engine places the nodes of a DOT graph.
type Engine interface {
	Place(ctx context.Context, dot string) (Placement, error)
}

// Graphviz is an [Engine] backed by the graphviz dot layout compiled to
// WebAssembly. One instance is reused for every call; calls are serialized.
type Graphviz struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

// NewGraphviz starts a graphviz runtime. Call Close when done.
func NewGraphviz(ctx context.Context) (*Graphviz, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	return &Graphviz{gv: gv}, nil
}

// Close releases the graphviz runtime.
func (g *Graphviz) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gv.Close()
}

// Place lays out dot and parses the node positions from the annotated DOT
// output.
func (g *Graphviz) Place(ctx context.Context, dot string) (Placement, error) {
	out, err := g.render(ctx, dot, formatDOT)
	if err != nil {
		return Placement{}, err
	}
	return parsePlacement(out)
}

// RenderSVG renders dot to SVG with a normalized viewBox.
func (g *Graphviz) RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := g.render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

func (g *Graphviz) render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := g.gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	bbRe   = regexp.MustCompile(`bb="([-0-9.e]+),([-0-9.e]+),([-0-9.e]+),([-0-9.e]+)"`)
	nodeRe = regexp.MustCompile(`(?m)^\s*"?(n[0-9]+)"?\s*\[([^\]]*)\]`)
	posRe  = regexp.MustCompile(`\bpos="([-0-9.e]+),([-0-9.e]+)"`)
)

// parsePlacement reads bb and node pos attributes from laid-out DOT. Graphviz
// puts the origin at the bottom left; centers are flipped so y grows down.
func parsePlacement(out []byte) (Placement, error) {
	m := bbRe.FindSubmatch(out)
	if m == nil {
		return Placement{}, fmt.Errorf("layout output has no bounding box")
	}
	x0, y0, x1, y1 := atof(m[1]), atof(m[2]), atof(m[3]), atof(m[4])

	p := Placement{
		Width:   x1 - x0,
		Height:  y1 - y0,
		Centers: map[string]Point{},
	}
	for _, nm := range nodeRe.FindAllSubmatch(out, -1) {
		pos := posRe.FindSubmatch(nm[2])
		if pos == nil {
			continue
		}
		p.Centers[string(nm[1])] = Point{
			X: atof(pos[1]) - x0,
			Y: y1 - atof(pos[2]),
		}
	}
	return p, nil
}

func atof(b []byte) float64 {
	f, _ := strconv.ParseFloat(string(b), 64)
	return f
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
