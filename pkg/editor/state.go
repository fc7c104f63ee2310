package editor

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/flow/layout"
	"github.com/matzehuels/factoryflow/pkg/history"
)

// LayoutFunc positions the visible nodes of a graph.
type LayoutFunc func(ctx context.Context, g flow.Graph, opts layout.Options) (flow.Graph, error)

// Env carries the reducer's dependencies.
type Env struct {
	// Now stamps node ids, edge ids and history entries. Defaults to
	// time.Now.
	Now func() time.Time

	// Layout runs after structural edits that add several nodes. When nil,
	// nodes keep the positions the action gave them.
	Layout LayoutFunc
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// LayoutWith returns a LayoutFunc backed by engine.
func LayoutWith(engine layout.Engine) LayoutFunc {
	return func(ctx context.Context, g flow.Graph, opts layout.Options) (flow.Graph, error) {
		return layout.Apply(ctx, engine, g, opts)
	}
}

// Selection is the set of selected node and edge ids.
type Selection struct {
	Nodes []string `json:"nodes"`
	Edges []string `json:"edges"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return len(s.Nodes) == 0 && len(s.Edges) == 0 }

// State is the editor state. It is a value: [Reduce] never modifies the
// state it is given.
type State struct {
	FactoryID  string
	Graph      flow.Graph
	History    history.Stack
	Selection  Selection
	Collapsed  map[string]bool // nodes whose descendants are hidden
	Counters   flow.RelationCounters
	Persisted  string // fingerprint of the last loaded or saved graph
	Busy       bool
	Horizontal bool
}

// Dirty reports whether the graph differs from the last persisted one.
func (s State) Dirty() bool {
	return s.Graph.Fingerprint() != s.Persisted
}

// CanUndo reports whether Undo would change the graph.
func (s State) CanUndo() bool { return s.History.CanUndo() }

// CanRedo reports whether Redo would change the graph.
func (s State) CanRedo() bool { return s.History.CanRedo() }

// Selected reports whether the node or edge id is selected.
func (s State) Selected(id string) bool {
	return slices.Contains(s.Selection.Nodes, id) || slices.Contains(s.Selection.Edges, id)
}

func (s State) withCollapsed(id string, collapsed bool) State {
	c := maps.Clone(s.Collapsed)
	if c == nil {
		c = map[string]bool{}
	}
	if collapsed {
		c[id] = true
	} else {
		delete(c, id)
	}
	s.Collapsed = c
	return s
}

// applyCollapsed returns g with the descendants of every collapsed node
// hidden and everything else visible.
func (s State) applyCollapsed(g flow.Graph) flow.Graph {
	g = g.Expanded()
	for id := range s.Collapsed {
		if !g.HasNode(id) {
			continue
		}
		below := slices.DeleteFunc(g.Descendants(id), func(d string) bool { return d == id })
		g = g.SetHidden(below, true)
	}
	return g
}
