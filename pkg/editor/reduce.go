package editor

import (
	"context"
	"fmt"
	"slices"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/flow/layout"
	"github.com/matzehuels/factoryflow/pkg/history"
	"github.com/matzehuels/factoryflow/pkg/notice"
	"github.com/matzehuels/factoryflow/pkg/rules"
)

// Notice summaries.
const (
	SummaryDropFailed   = "Failed to parse dragged data"
	SummaryNothing      = "Nothing selected"
	SummaryDeleted      = "Deleted"
	SummaryRestored     = "Restored"
	SummaryBusy         = "Please wait"
	SummaryUnknownNode  = "Unknown node"
	SummaryLayoutFailed = "Layout failed"
	SummaryDuplicate    = "Already on canvas"
	SummaryBadRelation  = "Invalid relation"
)

// Placement offsets of nodes created by actions, in canvas pixels.
const (
	relationOffset   = 200
	shopFloorAssetDX = 140
	shopFloorAssetDY = 150
	shopFloorDX      = 200
	shopFloorDY      = 127
	relationAssetDY  = 150
)

// parentSuffix is appended to a dropped asset id that is already taken.
const parentSuffix = "__parent"

// Reduce applies a to s and returns the new state with any notices for the
// user. It has no side effects beyond calling env.Layout.
func Reduce(ctx context.Context, env Env, s State, a Action) (State, []notice.Notice) {
	if s.Busy && mutates(a) {
		return s, []notice.Notice{notice.Infof(SummaryBusy, "a save is in progress")}
	}

	switch a := a.(type) {
	case Load:
		return load(env, s, a), nil
	case Connect:
		return connect(env, s, a)
	case Drop:
		return drop(env, s, a)
	case Select:
		s.Selection = Selection{Nodes: slices.Clone(a.Nodes), Edges: slices.Clone(a.Edges)}
		return s, nil
	case DeleteSelection:
		return deleteSelection(env, s)
	case MoveNode:
		return moveNode(env, s, a)
	case ToggleExpand:
		return toggleExpand(env, s, a)
	case Undo:
		return undo(env, s)
	case Redo:
		return redo(env, s)
	case CreateRelations:
		return createRelations(ctx, env, s, a)
	case AddAssetFromRelation:
		return addAssetFromRelation(env, s, a)
	case AddAssetsToShopFloor:
		return addAssetsToShopFloor(ctx, env, s, a)
	case ShopFloorCreated:
		return shopFloorCreated(env, s, a)
	case ShopFloorsDeleted:
		return shopFloorsDeleted(env, s, a)
	case Layout:
		s.Horizontal = a.Horizontal
		g, n := relayout(ctx, env, s, s.Graph)
		return commit(env, s, g), n
	case MarkSaved:
		s.Persisted = s.Graph.Fingerprint()
		return s, nil
	case SetBusy:
		s.Busy = a.Busy
		return s, nil
	default:
		panic(fmt.Sprintf("editor: unhandled action %T", a))
	}
}

// commit makes g the current graph and records it in history. Right after
// an undo or redo the push is swallowed by the replay guard.
func commit(env Env, s State, g flow.Graph) State {
	s.Graph = g
	s.History, _ = s.History.Push(g, env.now())
	return s
}

func relayout(ctx context.Context, env Env, s State, g flow.Graph) (flow.Graph, []notice.Notice) {
	if env.Layout == nil {
		return g, nil
	}
	out, err := env.Layout(ctx, g, layout.Editor(s.Horizontal))
	if err != nil {
		return g, []notice.Notice{notice.Warnf(SummaryLayoutFailed, "%v", err)}
	}
	return out, nil
}

func unknown(id string) []notice.Notice {
	return []notice.Notice{notice.Errorf(SummaryUnknownNode, "no node with id %s", id)}
}

func load(env Env, s State, a Load) State {
	g := a.Graph.Expanded()
	persisted := a.Persisted
	if persisted == "" {
		persisted = g.Fingerprint()
	}
	return State{
		FactoryID:  a.FactoryID,
		Graph:      g,
		History:    history.Seed(g, env.now()),
		Counters:   flow.CountRelations(g.Nodes).Merge(s.Counters),
		Persisted:  persisted,
		Busy:       s.Busy,
		Horizontal: s.Horizontal,
	}
}

func connect(env Env, s State, a Connect) (State, []notice.Notice) {
	d := rules.Connect(s.Graph, rules.Connection{Source: a.Source, Target: a.Target}, env.now())
	if !d.Accepted {
		return s, []notice.Notice{*d.Notice}
	}
	s.Counters = s.Counters.Merge(flow.CountRelations(d.Graph.Nodes))
	return commit(env, s, d.Graph), nil
}

func drop(env Env, s State, a Drop) (State, []notice.Notice) {
	p, err := flow.DecodeDrop(a.Payload)
	if err != nil {
		return s, []notice.Notice{notice.Errorf(SummaryDropFailed, "%v", err)}
	}
	now := env.now()
	g := s.Graph

	switch p.Type {
	case flow.KindShopFloor:
		id := flow.ShopFloorNodeID(p.Item.ID)
		if g.HasNode(id) {
			return s, []notice.Notice{notice.Warnf(SummaryDuplicate, "shop floor %s is already on the canvas", p.Label())}
		}
		g = g.WithNodes(flow.Node{
			ID:       id,
			Position: a.Position,
			Data:     flow.ShopFloorData{Label: p.Label(), ShopFloorID: p.Item.ID},
		})
		if f, ok := g.Factory(); ok && !g.HasEdge(f.ID, id) {
			g = g.WithEdges(flow.Edge{ID: flow.EdgeID(f.ID, id, now), Source: f.ID, Target: id})
		}

	case flow.KindAsset:
		id := flow.AssetNodeID(p.Item.ID, now)
		if g.HasNode(id) {
			id += parentSuffix
		}
		g = g.WithNodes(flow.Node{
			ID:       id,
			Position: a.Position,
			Style:    flow.DefaultAssetStyle(),
			Data: flow.AssetData{
				Label:        p.Label(),
				AssetID:      p.Item.ID,
				Category:     p.Item.AssetCategory,
				SerialNumber: p.Item.AssetSerialNumber,
			},
		})
	}
	return commit(env, s, g), nil
}

func deleteSelection(env Env, s State) (State, []notice.Notice) {
	if s.Selection.Empty() {
		return s, []notice.Notice{notice.Warnf(SummaryNothing, "select nodes or edges to delete")}
	}
	g := s.Graph

	var edges []string
	for _, id := range s.Selection.Edges {
		if e, ok := edgeByID(g, id); ok && !protectedEdge(g, e) {
			edges = append(edges, id)
		}
	}
	var nodes []string
	for _, id := range s.Selection.Nodes {
		if n, ok := g.Node(id); ok && !n.Undeletable() {
			nodes = append(nodes, id)
		}
	}
	if len(nodes) == 0 && len(edges) == 0 {
		return s, []notice.Notice{notice.Warnf(rules.SummaryNotAllowed,
			"factory and shop floor nodes and their links cannot be deleted here")}
	}

	out := g.WithoutEdges(edges...).WithoutNodes(nodes...)
	s.Selection = Selection{}
	s = commit(env, s, out)
	return s, []notice.Notice{notice.Successf(SummaryDeleted, "%d nodes and %d edges removed",
		len(g.Nodes)-len(out.Nodes), len(g.Edges)-len(out.Edges))}
}

func edgeByID(g flow.Graph, id string) (flow.Edge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return flow.Edge{}, false
}

// protectedEdge reports whether e links the factory to a shop floor.
func protectedEdge(g flow.Graph, e flow.Edge) bool {
	src, _ := g.Node(e.Source)
	dst, _ := g.Node(e.Target)
	return src.Kind() == flow.KindFactory && dst.Kind() == flow.KindShopFloor
}

func moveNode(env Env, s State, a MoveNode) (State, []notice.Notice) {
	n, ok := s.Graph.Node(a.ID)
	if !ok {
		return s, unknown(a.ID)
	}
	if n.Position == a.Position {
		return s, nil
	}
	n.Position = a.Position
	return commit(env, s, s.Graph.ReplaceNode(n)), nil
}

func toggleExpand(env Env, s State, a ToggleExpand) (State, []notice.Notice) {
	if !s.Graph.HasNode(a.ID) {
		return s, unknown(a.ID)
	}
	below := slices.DeleteFunc(s.Graph.Descendants(a.ID), func(id string) bool { return id == a.ID })
	if len(below) == 0 {
		return s, nil
	}
	collapse := !s.Collapsed[a.ID]
	s = s.withCollapsed(a.ID, collapse)
	if !collapse {
		for _, id := range below {
			s = s.withCollapsed(id, false)
		}
	}
	// Visibility is not an edit: no history entry, no change to Dirty.
	s.Graph = s.Graph.SetHidden(below, collapse)
	return s, nil
}

func undo(env Env, s State) (State, []notice.Notice) {
	h, snap, ok := s.History.Undo()
	if !ok {
		return s, nil
	}
	s.History = h
	s.Selection = Selection{}
	s = commit(env, s, s.applyCollapsed(snap.Graph))
	if snap.Source == history.SourceBackend {
		return s, []notice.Notice{notice.Infof(SummaryRestored, "the graph is back at its last saved state")}
	}
	return s, nil
}

func redo(env Env, s State) (State, []notice.Notice) {
	h, snap, ok := s.History.Redo()
	if !ok {
		return s, nil
	}
	s.History = h
	s.Selection = Selection{}
	return commit(env, s, s.applyCollapsed(snap.Graph)), nil
}

func createRelations(ctx context.Context, env Env, s State, a CreateRelations) (State, []notice.Notice) {
	asset, ok := s.Graph.Node(a.AssetNodeID)
	if !ok {
		return s, unknown(a.AssetNodeID)
	}
	for _, name := range a.Names {
		if err := apperr.ValidateRelationName(name); err != nil {
			return s, []notice.Notice{notice.Errorf(SummaryBadRelation, "%s", apperr.UserMessage(err))}
		}
	}
	now := env.now()
	g := s.Graph
	counters := s.Counters

	for i, name := range a.Names {
		seq := counters.Next(name, g.Nodes)
		counters = counters.With(name, seq)
		rel := flow.Node{
			ID: flow.RelationNodeID(name, seq),
			Position: flow.Position{
				X: asset.Position.X + relationOffset + float64(i)*relationOffset,
				Y: asset.Position.Y + relationOffset,
			},
			Data: flow.RelationData{
				Label:            flow.RelationLabel(name, seq),
				Class:            a.Class,
				ParentID:         asset.ID,
				AssetCategory:    a.Category,
				RelationshipType: a.RelationshipType,
			},
		}
		g = g.WithNodes(rel).WithEdges(flow.Edge{
			ID:     flow.IndexedEdgeID(asset.ID, rel.ID, now, i),
			Source: asset.ID,
			Target: rel.ID,
		})
	}

	s.Counters = counters
	g, notices := relayout(ctx, env, s, g)
	return commit(env, s, g), notices
}

func assetNode(a AssetRef, id string, pos flow.Position) flow.Node {
	return flow.Node{
		ID:       id,
		Position: pos,
		Style:    flow.DefaultAssetStyle(),
		Data: flow.AssetData{
			Label:        a.Label,
			AssetID:      a.ID,
			Category:     a.Category,
			SerialNumber: a.SerialNumber,
		},
	}
}

func addAssetFromRelation(env Env, s State, a AddAssetFromRelation) (State, []notice.Notice) {
	rel, ok := s.Graph.Node(a.RelationID)
	if !ok || rel.Kind() != flow.KindRelation {
		return s, unknown(a.RelationID)
	}
	now := env.now()
	g := s.Graph

	target, ok := g.FindByEntity(flow.KindAsset, a.Asset.ID)
	if !ok {
		target = assetNode(a.Asset, flow.IndexedAssetNodeID(a.Asset.ID, now, 0),
			flow.Position{X: rel.Position.X, Y: rel.Position.Y + relationAssetDY})
		g = g.WithNodes(target)
	}

	d := rules.Connect(g, rules.Connection{Source: rel.ID, Target: target.ID}, now)
	if !d.Accepted {
		return s, []notice.Notice{*d.Notice}
	}
	return commit(env, s, d.Graph), nil
}

func addAssetsToShopFloor(ctx context.Context, env Env, s State, a AddAssetsToShopFloor) (State, []notice.Notice) {
	sf, ok := s.Graph.FindByEntity(flow.KindShopFloor, a.ShopFloorID)
	if !ok {
		return s, unknown(flow.ShopFloorNodeID(a.ShopFloorID))
	}
	now := env.now()
	g := s.Graph

	for i, asset := range a.Assets {
		n, ok := g.FindByEntity(flow.KindAsset, asset.ID)
		if !ok {
			n = assetNode(asset, flow.IndexedAssetNodeID(asset.ID, now, i), flow.Position{
				X: sf.Position.X + shopFloorAssetDX*float64(i),
				Y: sf.Position.Y + shopFloorAssetDY,
			})
			g = g.WithNodes(n)
		}
		if !g.HasEdge(sf.ID, n.ID) {
			g = g.WithEdges(flow.Edge{
				ID:     flow.IndexedEdgeID(sf.ID, n.ID, now, i),
				Source: sf.ID,
				Target: n.ID,
			})
		}
	}

	g, notices := relayout(ctx, env, s, g)
	return commit(env, s, g), notices
}

func shopFloorCreated(env Env, s State, a ShopFloorCreated) (State, []notice.Notice) {
	id := flow.ShopFloorNodeID(a.ID)
	if s.Graph.HasNode(id) {
		return s, nil
	}
	f, ok := s.Graph.Factory()
	if !ok {
		return s, []notice.Notice{notice.Errorf(SummaryUnknownNode, "the graph has no factory node")}
	}
	n := len(s.Graph.NodesOfKind(flow.KindShopFloor))
	g := s.Graph.WithNodes(flow.Node{
		ID: id,
		Position: flow.Position{
			X: f.Position.X + float64(n)*shopFloorDX - 100,
			Y: f.Position.Y + shopFloorDY,
		},
		Data: flow.ShopFloorData{Label: a.Label, ShopFloorID: a.ID},
	}).WithEdges(flow.Edge{ID: flow.EdgeID(f.ID, id, env.now()), Source: f.ID, Target: id})
	return commit(env, s, g), nil
}

func shopFloorsDeleted(env Env, s State, a ShopFloorsDeleted) (State, []notice.Notice) {
	ids := make([]string, 0, len(a.IDs))
	for _, id := range a.IDs {
		if nodeID := flow.ShopFloorNodeID(id); s.Graph.HasNode(nodeID) {
			ids = append(ids, nodeID)
		}
	}
	if len(ids) == 0 {
		return s, nil
	}
	return commit(env, s, s.Graph.WithoutNodes(ids...)), nil
}
