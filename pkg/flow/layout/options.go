package layout

import "github.com/matzehuels/factoryflow/pkg/flow"

// Anchor selects which point of a node its position refers to.
type Anchor int

const (
	// AnchorTopLeft places Position at the node's top-left corner.
	AnchorTopLeft Anchor = iota
	// AnchorCenter places Position at the node's center.
	AnchorCenter
)

// Size is the box a node occupies during layout, in canvas pixels.
type Size struct {
	Width, Height float64
}

// Options configures a layout pass. Separations and sizes are in canvas
// pixels; the graphviz adapter converts them to inches.
type Options struct {
	Horizontal bool    // rank left to right instead of top to bottom
	RankSep    float64 // distance between ranks
	NodeSep    float64 // distance between nodes of one rank
	Anchor     Anchor

	// Sizes maps node kinds to boxes. Kinds not listed use DefaultSize.
	Sizes       map[flow.Kind]Size
	DefaultSize Size

	// NudgeRelations moves the only relation child of an asset to the
	// asset's lower left, out of the rank flow.
	NudgeRelations bool
}

// Editor layout constants.
const (
	EditorRankSep = 50
	EditorNodeSep = 90

	NudgeGapX = 220
	NudgeGapY = 150
)

// Editor returns the options used after every structural edit.
func Editor(horizontal bool) Options {
	return Options{
		Horizontal: horizontal,
		RankSep:    EditorRankSep,
		NodeSep:    EditorNodeSep,
		Anchor:     AnchorTopLeft,
		Sizes: map[flow.Kind]Size{
			flow.KindRelation: {Width: 120, Height: 40},
		},
		DefaultSize:    Size{Width: 160, Height: 80},
		NudgeRelations: true,
	}
}

// Load returns the options used when a stored graph is opened.
func Load() Options {
	return Options{
		RankSep:     30,
		NodeSep:     90,
		Anchor:      AnchorCenter,
		DefaultSize: Size{Width: 150, Height: 100},
	}
}

// SizeOf returns the layout box of n.
func (o Options) SizeOf(n flow.Node) Size {
	if s, ok := o.Sizes[n.Kind()]; ok {
		return s
	}
	return o.DefaultSize
}

func (o Options) rankdir() string {
	if o.Horizontal {
		return "LR"
	}
	return "TB"
}
