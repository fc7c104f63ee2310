package flow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Graph is the node/edge state of one factory's flow editor.
//
// Graph is a value: the helpers below never modify the receiver's slices and
// always return a fresh graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range g.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// =============================================================================
// Queries
// =============================================================================

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	if i := g.nodeIndex(id); i >= 0 {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// HasNode reports whether a node with the given id exists.
func (g Graph) HasNode(id string) bool {
	return g.nodeIndex(id) >= 0
}

func (g Graph) nodeIndex(id string) int {
	return slices.IndexFunc(g.Nodes, func(n Node) bool { return n.ID == id })
}

// Factory returns the factory node.
func (g Graph) Factory() (Node, bool) {
	i := slices.IndexFunc(g.Nodes, func(n Node) bool { return n.Kind() == KindFactory })
	if i < 0 {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodesOfKind returns the nodes of kind k in graph order.
func (g Graph) NodesOfKind(k Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind() == k {
			out = append(out, n)
		}
	}
	return out
}

// FindByEntity returns the first node of kind k whose entity id is entityID.
func (g Graph) FindByEntity(k Kind, entityID string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind() == k && n.EntityID() == entityID {
			return n, true
		}
	}
	return Node{}, false
}

// OutEdges returns the edges leaving id.
func (g Graph) OutEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether an edge source→target exists.
func (g Graph) HasEdge(source, target string) bool {
	return slices.ContainsFunc(g.Edges, func(e Edge) bool {
		return e.Source == source && e.Target == target
	})
}

// Descendants returns the ids of every node reachable from id by following
// edges forward, in discovery order. id itself is not included unless a
// cycle leads back to it.
func (g Graph) Descendants(id string) []string {
	var (
		out   []string
		seen  = map[string]bool{}
		stack = []string{id}
	)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Edges {
			if e.Source != cur || seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			out = append(out, e.Target)
			stack = append(stack, e.Target)
		}
	}
	return out
}

// Visible returns the graph restricted to non-hidden nodes and to non-hidden
// edges whose endpoints are both visible.
func (g Graph) Visible() Graph {
	var out Graph
	visible := map[string]bool{}
	for _, n := range g.Nodes {
		if !n.Hidden {
			out.Nodes = append(out.Nodes, n)
			visible[n.ID] = true
		}
	}
	for _, e := range g.Edges {
		if !e.Hidden && visible[e.Source] && visible[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// TrivialEdges reports whether every edge runs from a factory node to a shop
// floor node. A graph without edges is trivial.
func (g Graph) TrivialEdges() bool {
	for _, e := range g.Edges {
		if !strings.HasPrefix(e.Source, factoryPrefix) || !strings.HasPrefix(e.Target, shopFloorPrefix) {
			return false
		}
	}
	return true
}

// Validate checks node ids, edge endpoints and the single-factory invariant.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	factories := 0
	for _, n := range g.Nodes {
		if n.ID == "" {
			return ErrInvalidNodeID
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		seen[n.ID] = true
		if n.Kind() == KindFactory {
			factories++
		}
	}
	switch {
	case factories == 0:
		return ErrMissingFactory
	case factories > 1:
		return ErrMultipleFactories
	}
	for _, e := range g.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("%w: %s (edge %s)", ErrUnknownSourceNode, e.Source, e.ID)
		}
		if !seen[e.Target] {
			return fmt.Errorf("%w: %s (edge %s)", ErrUnknownTargetNode, e.Target, e.ID)
		}
	}
	return nil
}

// =============================================================================
// Copy-on-write mutations
// =============================================================================

// WithNodes returns a graph with nodes appended.
func (g Graph) WithNodes(nodes ...Node) Graph {
	return Graph{Nodes: append(slices.Clip(g.Nodes), nodes...), Edges: g.Edges}
}

// WithEdges returns a graph with edges appended.
func (g Graph) WithEdges(edges ...Edge) Graph {
	return Graph{Nodes: g.Nodes, Edges: append(slices.Clip(g.Edges), edges...)}
}

// ReplaceNode returns a graph where the node with n.ID is replaced by n.
// The graph is returned unchanged if no such node exists.
func (g Graph) ReplaceNode(n Node) Graph {
	i := g.nodeIndex(n.ID)
	if i < 0 {
		return g
	}
	nodes := slices.Clone(g.Nodes)
	nodes[i] = n
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// MapNodes returns a graph with fn applied to every node.
func (g Graph) MapNodes(fn func(Node) Node) Graph {
	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = fn(n)
	}
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// MapEdges returns a graph with fn applied to every edge.
func (g Graph) MapEdges(fn func(Edge) Edge) Graph {
	edges := make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = fn(e)
	}
	return Graph{Nodes: g.Nodes, Edges: edges}
}

// WithoutNodes returns a graph without the given nodes and without every edge
// touching one of them.
func (g Graph) WithoutNodes(ids ...string) Graph {
	drop := toSet(ids)
	out := Graph{}
	for _, n := range g.Nodes {
		if !drop[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if !drop[e.Source] && !drop[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// WithoutEdges returns a graph without the edges with the given ids.
func (g Graph) WithoutEdges(ids ...string) Graph {
	drop := toSet(ids)
	out := Graph{Nodes: g.Nodes}
	for _, e := range g.Edges {
		if !drop[e.ID] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// RemapEdges returns a graph where every edge endpoint equal to oldID is
// replaced by newID.
func (g Graph) RemapEdges(oldID, newID string) Graph {
	if oldID == newID {
		return g
	}
	return g.MapEdges(func(e Edge) Edge {
		if e.Source == oldID {
			e.Source = newID
		}
		if e.Target == oldID {
			e.Target = newID
		}
		return e
	})
}

// Dedupe returns a graph where nodes sharing an id are collapsed. The
// surviving node keeps the position in the list of the first occurrence and
// the value of the last.
func (g Graph) Dedupe() Graph {
	index := map[string]int{}
	var nodes []Node
	for _, n := range g.Nodes {
		if i, ok := index[n.ID]; ok {
			nodes[i] = n
			continue
		}
		index[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// Skeleton returns the graph pruned to factory and shop floor nodes and the
// edges between them.
func (g Graph) Skeleton() Graph {
	var drop []string
	for _, n := range g.Nodes {
		if !n.Undeletable() {
			drop = append(drop, n.ID)
		}
	}
	return g.WithoutNodes(drop...)
}

// SetHidden returns a graph where the given nodes, and every edge touching
// one of them, have Hidden set to hidden.
func (g Graph) SetHidden(ids []string, hidden bool) Graph {
	set := toSet(ids)
	out := g.MapNodes(func(n Node) Node {
		if set[n.ID] {
			n.Hidden = hidden
		}
		return n
	})
	return out.MapEdges(func(e Edge) Edge {
		if set[e.Source] || set[e.Target] {
			e.Hidden = hidden
		}
		return e
	})
}

// Expanded returns the graph with every node and edge visible. Visibility
// is view state: stored documents and fingerprints use the expanded graph.
func (g Graph) Expanded() Graph {
	return g.MapNodes(func(n Node) Node {
		n.Hidden = false
		return n
	}).MapEdges(func(e Edge) Edge {
		e.Hidden = false
		return e
	})
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Fingerprint returns a SHA-256 hex digest of the expanded graph's wire
// encoding, so collapsing a subtree leaves it unchanged. Equal graphs have
// equal fingerprints; map keys are encoded sorted.
func (g Graph) Fingerprint() string {
	data, err := json.Marshal(g.Expanded().Wire())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
