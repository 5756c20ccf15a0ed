// Package graph provides the immutable property-graph model laid out by
// forcegraph.
//
// A [Graph] is a multigraph of [Node] values keyed by a unique string ID and
// [Edge] values with their own unique IDs. Edges are directed in the model
// but the layout treats them as undirected. Parallel edges are distinct.
//
// # Construction
//
// Graphs are built once with [New] or a [Builder] and never mutated:
//
//	g, err := graph.NewBuilder().
//	    AddNode(graph.Node{ID: "go"}).
//	    AddNode(graph.Node{ID: "gc"}).
//	    AddEdge(graph.Edge{Source: "go", Target: "gc"}).
//	    Build()
//
// An edge whose source or target is not a node rejects the whole graph with
// [ErrUnknownSourceNode] or [ErrUnknownTargetNode]; edges are never dropped.
// Errors also carry a code from pkg/errors (UNKNOWN_NODE, DUPLICATE_NODE, ...).
//
// # Serialization
//
// [Document] is the JSON/BSON wire format:
//
//	{
//	  "nodes": [{"id": "gc"}, {"id": "go"}],
//	  "edges": [{"id": "e0", "source": "go", "target": "gc"}]
//	}
//
// Use [WriteGraph]/[ReadGraph] for streams and the *File variants for paths.
//
// Positions, pins and velocities are not part of the model; see pkg/sim.
// Degree, size and text color are derived by pkg/attrs.
package graph
