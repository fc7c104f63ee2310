// Package flow provides the factory flow graph: the node/edge model edited by
// the factory editor and persisted to the document store.
//
// # Overview
//
// A flow graph has exactly one factory node at its root. Shop floor nodes hang
// off the factory, asset nodes hang off shop floors, and synthetic relation
// nodes link an asset to the assets it "has" (a filter, a cutter, a tracker):
//
//	factory_F1
//	  └── shopFloor_S1
//	        └── asset_A1_1700000000000
//	              └── relation_hasFilter_001
//	                    └── asset_A2_1700000000001
//
// # Node Kinds
//
// [Node.Data] is a tagged variant. Each kind carries only its own fields:
//
//   - [FactoryData]: the root, always undeletable
//   - [ShopFloorData]: a production area
//   - [AssetData]: a machine, with its category ("Retrofit Filter", ...)
//   - [RelationData]: a capability link created by the editor
//
// Use a type switch on [Node.Data] to handle every kind.
//
// # Copy on Write
//
// [Graph] is a value. Every mutating helper ([Graph.WithNode],
// [Graph.WithoutNodes], [Graph.RemapEdges], ...) returns a new graph and
// leaves the receiver untouched, so snapshots kept by the history stack never
// change underneath it.
//
// # Wire Format
//
// Nodes and edges serialize to the react-flow document shape stored under
// factoryData:
//
//	{"id": "shopFloor_S1", "type": "shopFloor",
//	 "position": {"x": 150, "y": 197},
//	 "data": {"label": "Hall A", "type": "shopFloor", "id": "S1"}}
//
// Data keys the model does not know about are kept in [Node.Extra] and
// written back unchanged.
package flow
