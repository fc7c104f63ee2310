// Package layout assigns canvas positions to flow graph nodes.
//
// Positions come from a layered (Sugiyama) layout computed by graphviz dot,
// the same family of algorithm as the dagre layout the canvas was designed
// around:
//
//	gv, _ := layout.NewGraphviz(ctx)
//	defer gv.Close()
//	g, err := layout.Apply(ctx, gv, g, layout.Editor(false))
//
// Only visible nodes and edges take part. Hidden nodes keep their positions.
// Layout is deterministic: the same graph and options always produce the same
// positions.
//
// [Runner] adds a position cache in front of an [Engine], keyed by a hash of
// the visible topology and options.
package layout

import (
	"context"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

// Apply lays out the visible part of g with engine and returns g with the
// positions of visible nodes replaced.
func Apply(ctx context.Context, engine Engine, g flow.Graph, opts Options) (flow.Graph, error) {
	positions, err := Compute(ctx, engine, g, opts)
	if err != nil {
		return flow.Graph{}, err
	}
	return Assign(g, positions, opts), nil
}

// Compute returns the positions engine assigns to the visible nodes of g,
// already converted to opts.Anchor.
func Compute(ctx context.Context, engine Engine, g flow.Graph, opts Options) (map[string]flow.Position, error) {
	if len(g.Visible().Nodes) == 0 {
		return map[string]flow.Position{}, nil
	}
	dot, aliases := ToDOT(g, opts)
	placement, err := engine.Place(ctx, dot)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]flow.Position, len(aliases))
	for alias, id := range aliases {
		c, ok := placement.Centers[alias]
		if !ok {
			continue
		}
		n, _ := g.Node(id)
		positions[id] = anchored(c, opts.SizeOf(n), opts.Anchor)
	}
	return positions, nil
}

// Assign writes positions onto the visible nodes of g and runs the relation
// nudge when enabled. Hidden nodes and nodes without a position are returned
// unchanged.
func Assign(g flow.Graph, positions map[string]flow.Position, opts Options) flow.Graph {
	out := g.MapNodes(func(n flow.Node) flow.Node {
		if n.Hidden {
			return n
		}
		if p, ok := positions[n.ID]; ok {
			n.Position = p
		}
		return n
	})
	if opts.NudgeRelations {
		out = nudgeSingleRelations(out, opts)
	}
	return out
}

func anchored(c Point, s Size, a Anchor) flow.Position {
	if a == AnchorCenter {
		return flow.Position{X: c.X, Y: c.Y}
	}
	return flow.Position{X: c.X - s.Width/2, Y: c.Y - s.Height/2}
}

// nudgeSingleRelations moves the relation of every asset that owns exactly
// one relation to (asset.x - (NudgeGapX + relationWidth), asset.y + NudgeGapY).
func nudgeSingleRelations(g flow.Graph, opts Options) flow.Graph {
	owned := map[string][]string{}
	var order []string
	for _, e := range g.Edges {
		src, okSrc := g.Node(e.Source)
		dst, okDst := g.Node(e.Target)
		if !okSrc || !okDst || src.Kind() != flow.KindAsset || dst.Kind() != flow.KindRelation {
			continue
		}
		if _, seen := owned[src.ID]; !seen {
			order = append(order, src.ID)
		}
		owned[src.ID] = append(owned[src.ID], dst.ID)
	}

	for _, assetID := range order {
		rels := owned[assetID]
		if len(rels) != 1 {
			continue
		}
		asset, _ := g.Node(assetID)
		rel, _ := g.Node(rels[0])
		if rel.Hidden {
			continue
		}
		w := opts.SizeOf(rel).Width
		rel.Position = flow.Position{
			X: asset.Position.X - (NudgeGapX + w),
			Y: asset.Position.Y + NudgeGapY,
		}
		g = g.ReplaceNode(rel)
	}
	return g
}
