package graph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
)

var (
	// ErrInvalidNodeID is returned when a node has an empty identifier.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned when two nodes share an identifier.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDuplicateEdgeID is returned when two edges share an identifier.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownSourceNode is returned when an edge's Source does not name a
	// node of the graph. The edge is never silently dropped.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned when an edge's Target does not name a
	// node of the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Graph is an immutable multigraph. Every edge endpoint references a node
// of the graph; this is checked once, at construction.
//
// All accessors return copies, so callers cannot mutate a built Graph.
// Structural changes require building a new Graph.
type Graph struct {
	nodes map[string]Node
	ids   []string // sorted
	edges []Edge
}

// Builder accumulates nodes and edges and validates them in [Builder.Build].
// The zero value is ready to use.
type Builder struct {
	nodes []Node
	edges []Edge
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddNode queues a node. Validation is deferred to Build.
func (b *Builder) AddNode(n Node) *Builder {
	b.nodes = append(b.nodes, n)
	return b
}

// AddEdge queues an edge. Edges may be added before their endpoints.
func (b *Builder) AddEdge(e Edge) *Builder {
	b.edges = append(b.edges, e)
	return b
}

// Build validates the queued nodes and edges and returns the Graph.
func (b *Builder) Build() (*Graph, error) {
	return New(b.nodes, b.edges)
}

// New builds a Graph from nodes and edges.
//
// Edges with an empty ID are assigned "e<index>" where index is the edge's
// position in edges. Construction fails on the first empty or duplicate node
// ID, duplicate edge ID, or edge endpoint that is not a node. Errors wrap
// both a sentinel of this package and a coded [fgerrors.Error].
func New(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]Node, len(nodes)),
		ids:   make([]string, 0, len(nodes)),
		edges: make([]Edge, 0, len(edges)),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeInvalidGraph, ErrInvalidNodeID, "add node")
		}
		if _, ok := g.nodes[n.ID]; ok {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeDuplicateNode, ErrDuplicateNodeID, "node %q", n.ID)
		}
		g.nodes[n.ID] = n.clone()
		g.ids = append(g.ids, n.ID)
	}
	slices.Sort(g.ids)

	seen := make(map[string]struct{}, len(edges))
	for i, e := range edges {
		if e.ID == "" {
			e.ID = "e" + strconv.Itoa(i)
		}
		if _, ok := seen[e.ID]; ok {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeDuplicateEdge, ErrDuplicateEdgeID, "edge %q", e.ID)
		}
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeUnknownNode, ErrUnknownSourceNode,
				"edge %q: source %q", e.ID, e.Source)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeUnknownNode, ErrUnknownTargetNode,
				"edge %q: target %q", e.ID, e.Target)
		}
		seen[e.ID] = struct{}{}
		g.edges = append(g.edges, e.clone())
	}
	return g, nil
}

// MustNew is like New but panics on error. Intended for tests and examples.
func MustNew(nodes []Node, edges []Edge) *Graph {
	g, err := New(nodes, edges)
	if err != nil {
		panic(fmt.Sprintf("graph.MustNew: %v", err))
	}
	return g
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of edges, counting parallel edges separately.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// HasNode reports whether id names a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeIDs returns all node IDs in ascending order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.ids) }

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.ids))
	for i, id := range g.ids {
		out[i] = g.nodes[id].clone()
	}
	return out
}

// Edges returns all edges in construction order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = e.clone()
	}
	return out
}

// Incident returns the edges that have id as source or target. A self-loop
// appears once.
func (g *Graph) Incident(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			out = append(out, e.clone())
		}
	}
	return out
}
