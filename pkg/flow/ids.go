package flow

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	factoryPrefix   = "factory_"
	shopFloorPrefix = "shopFloor_"
	assetPrefix     = "asset_"
	relationPrefix  = "relation_"
)

// FactoryNodeID returns the node id of a factory.
func FactoryNodeID(factoryID string) string { return factoryPrefix + factoryID }

// ShopFloorNodeID returns the node id of a shop floor.
func ShopFloorNodeID(shopFloorID string) string { return shopFloorPrefix + shopFloorID }

// AssetNodeID returns the node id of an asset dropped at time at.
func AssetNodeID(assetID string, at time.Time) string {
	return fmt.Sprintf("%s%s_%d", assetPrefix, assetID, at.UnixMilli())
}

// IndexedAssetNodeID returns the node id of the i-th asset added in one batch.
func IndexedAssetNodeID(assetID string, at time.Time, i int) string {
	return fmt.Sprintf("%s%s_%d_%d", assetPrefix, assetID, at.UnixMilli(), i)
}

// RelationNodeID returns the id of the seq-th relation of the given name,
// e.g. "relation_hasFilter_001".
func RelationNodeID(name string, seq int) string {
	return fmt.Sprintf("%s%s_%s", relationPrefix, name, RelationSeq(seq))
}

// RelationLabel returns the label of a relation node, e.g. "hasFilter_001".
func RelationLabel(name string, seq int) string {
	return name + "_" + RelationSeq(seq)
}

// RelationSeq formats a relation sequence number with three digits.
func RelationSeq(seq int) string {
	return fmt.Sprintf("%03d", seq)
}

var relationIDRegex = regexp.MustCompile(`^relation_(.+)_([0-9]+)$`)

// ParseRelationID splits a relation node id into its name and sequence.
func ParseRelationID(id string) (name string, seq int, ok bool) {
	m := relationIDRegex.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], seq, true
}

// RelationType returns the second '_' separated segment of a relation node
// id ("hasFilter" for "relation_hasFilter_001").
func RelationType(relationNodeID string) string {
	parts := strings.Split(relationNodeID, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// EdgeID returns the id of an edge created at time at.
func EdgeID(source, target string, at time.Time) string {
	return fmt.Sprintf("reactflow__edge-%s-%s_%d", source, target, at.UnixMilli())
}

// IndexedEdgeID returns the id of the i-th edge created in one batch.
func IndexedEdgeID(source, target string, at time.Time, i int) string {
	return fmt.Sprintf("reactflow__edge-%s-%s_%d_%d", source, target, at.UnixMilli(), i)
}

// RelationEdgeID returns the id of a relation→asset edge.
func RelationEdgeID(relationNodeID string, at time.Time) string {
	return fmt.Sprintf("reactflow_edge-%s_%d", relationNodeID, at.UnixMilli())
}

// =============================================================================
// Relation counters
// =============================================================================

// RelationCounters tracks the highest sequence handed out per relation name.
// It is a value: [RelationCounters.With] returns a new map.
type RelationCounters map[string]int

// CountRelations derives counters from the relation node ids in nodes.
func CountRelations(nodes []Node) RelationCounters {
	c := RelationCounters{}
	for _, n := range nodes {
		name, seq, ok := ParseRelationID(n.ID)
		if ok && seq > c[name] {
			c[name] = seq
		}
	}
	return c
}

// Next returns the next unused sequence for name, considering both the
// recorded counter and every relation id currently in nodes.
func (c RelationCounters) Next(name string, nodes []Node) int {
	maxSeq := c[name]
	if seen := CountRelations(nodes)[name]; seen > maxSeq {
		maxSeq = seen
	}
	return maxSeq + 1
}

// With returns counters where name is raised to seq.
func (c RelationCounters) With(name string, seq int) RelationCounters {
	out := maps.Clone(c)
	if out == nil {
		out = RelationCounters{}
	}
	if seq > out[name] {
		out[name] = seq
	}
	return out
}

// Merge returns counters holding the maximum of c and other per name.
func (c RelationCounters) Merge(other RelationCounters) RelationCounters {
	out := maps.Clone(c)
	if out == nil {
		out = RelationCounters{}
	}
	for name, seq := range other {
		if seq > out[name] {
			out[name] = seq
		}
	}
	return out
}
