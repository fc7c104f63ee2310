package layout

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

// pointsPerInch converts canvas pixels to graphviz inches. Graphviz reports
// positions in points, so a layout round-trips in pixel units.
const pointsPerInch = 72.0

// ToDOT converts the visible part of g to Graphviz DOT. Node ids are replaced
// by aliases n0, n1, ... in graph order, since react-flow ids may contain
// characters DOT would need to quote; aliases maps each alias back.
//
// Node boxes are fixed to the sizes in opts so the layout does not depend on
// label text.
func ToDOT(g flow.Graph, opts Options) (dot string, aliases map[string]string) {
	vis := g.Visible()
	aliases = make(map[string]string, len(vis.Nodes))
	byID := make(map[string]string, len(vis.Nodes))

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.rankdir())
	fmt.Fprintf(&buf, "  ranksep=%.4f;\n", opts.RankSep/pointsPerInch)
	fmt.Fprintf(&buf, "  nodesep=%.4f;\n", opts.NodeSep/pointsPerInch)
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fixedsize=true, fontsize=12];\n")
	buf.WriteString("\n")

	for i, n := range vis.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[alias] = n.ID
		byID[n.ID] = alias
		s := opts.SizeOf(n)
		fmt.Fprintf(&buf, "  %s [label=%q, width=%.4f, height=%.4f%s];\n",
			alias, n.Label(), s.Width/pointsPerInch, s.Height/pointsPerInch, kindAttrs(n.Kind()))
	}

	buf.WriteString("\n")
	for _, e := range vis.Edges {
		fmt.Fprintf(&buf, "  %s -> %s;\n", byID[e.Source], byID[e.Target])
	}

	buf.WriteString("}\n")
	return buf.String(), aliases
}

func kindAttrs(k flow.Kind) string {
	switch k {
	case flow.KindFactory:
		return `, fillcolor="#dbeafe"`
	case flow.KindShopFloor:
		return `, fillcolor="#dcfce7"`
	case flow.KindRelation:
		return `, style="rounded,filled,dashed", fillcolor="#f3f4f6"`
	default:
		return ""
	}
}
