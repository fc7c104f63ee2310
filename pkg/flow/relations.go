package flow

import (
	"slices"
	"strings"
)

// Relation names whose relation nodes accept a single outgoing edge.
var singleFanoutRelations = []string{"hasCutter", "hasFilter", "hasTracker", "hasSource"}

// ClassMachine marks relations that link to exactly one machine.
const ClassMachine = "machine"

// SingleFanout reports whether a relation node may have at most one outgoing
// edge: either its id names one of the reserved relations or its class is
// [ClassMachine].
func SingleFanout(n Node) bool {
	d, ok := n.Data.(RelationData)
	if !ok {
		return false
	}
	if d.Class == ClassMachine {
		return true
	}
	return slices.ContainsFunc(singleFanoutRelations, func(name string) bool {
		return strings.Contains(n.ID, relationPrefix+name)
	})
}

// CategoryKey returns the lower-cased second word of an asset category
// ("Retrofit Filter" → "filter"), or "" if there is none.
func CategoryKey(category string) string {
	fields := strings.Split(category, " ")
	if len(fields) < 2 {
		return ""
	}
	return strings.ToLower(fields[1])
}

// RelationKind returns the kind a relation label stands for: the text before
// the first '_' with "has" removed, lower-cased ("hasFilter_001" → "filter").
func RelationKind(label string) string {
	head, _, _ := strings.Cut(label, "_")
	return strings.ToLower(strings.Replace(head, "has", "", 1))
}

// RelationNameFor returns the relation name expected for a category key
// ("filter" → "hasFilter").
func RelationNameFor(categoryKey string) string {
	if categoryKey == "" {
		return "has"
	}
	return "has" + strings.ToUpper(categoryKey[:1]) + categoryKey[1:]
}

// =============================================================================
// Relation payload
// =============================================================================

// RelationPayload maps an asset id to its relations and, per relation, the
// ids of the related assets. It is the body of the entity store's relation
// update.
type RelationPayload map[string]map[string][]string

// Empty reports whether the payload names no asset.
func (p RelationPayload) Empty() bool { return len(p) == 0 }

func (p RelationPayload) ensure(assetID, relation string) {
	if p[assetID] == nil {
		p[assetID] = map[string][]string{}
	}
	if p[assetID][relation] == nil {
		p[assetID][relation] = []string{}
	}
}

// BuildRelationPayload derives the relation payload from the graph:
//
//   - an asset→relation edge registers the relation (possibly with no target)
//   - a relation→asset edge appends the target asset to the relation of the
//     asset that owns the relation node
func BuildRelationPayload(g Graph) RelationPayload {
	nodes := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = n
	}

	payload := RelationPayload{}
	for _, e := range g.Edges {
		src, okSrc := nodes[e.Source]
		dst, okDst := nodes[e.Target]
		if !okSrc || !okDst {
			continue
		}
		switch {
		case src.Kind() == KindAsset && dst.Kind() == KindRelation:
			payload.ensure(src.EntityID(), RelationType(dst.ID))

		case src.Kind() == KindRelation && dst.Kind() == KindAsset:
			parent, ok := owningAsset(g, nodes, src.ID)
			if !ok || parent.EntityID() == "" {
				continue
			}
			rel := RelationType(src.ID)
			payload.ensure(parent.EntityID(), rel)
			payload[parent.EntityID()][rel] = append(payload[parent.EntityID()][rel], dst.EntityID())
		}
	}
	return payload
}

func owningAsset(g Graph, nodes map[string]Node, relationID string) (Node, bool) {
	for _, e := range g.Edges {
		if e.Target != relationID {
			continue
		}
		if n, ok := nodes[e.Source]; ok && n.Kind() == KindAsset {
			return n, true
		}
	}
	return Node{}, false
}
