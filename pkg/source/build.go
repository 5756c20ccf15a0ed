package source

import (
	"maps"
	"strconv"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Default paint values for built graphs.
const (
	DefaultNodeColor = "#cccccc"
	DefaultEdgeColor = "#999999"
	DefaultNodeSize  = 10.0
	DefaultEdgeSize  = 1.0
)

// Palette maps node labels to colors.
type Palette map[string]string

// DefaultPalette returns the category colors for the knowledge-graph labels.
func DefaultPalette() Palette {
	return Palette{
		"Technology": "#1f77b4",
		"Concept":    "#ff7f0e",
		"Framework":  "#2ca02c",
		"Tool":       "#d62728",
		"Platform":   "#9467bd",
	}
}

// Color returns the color of the first label found in p and that label.
// Nodes without a known label get DefaultNodeColor and their first label.
func (p Palette) Color(labels []string) (color, category string) {
	for _, l := range labels {
		if c, ok := p[l]; ok {
			return c, l
		}
	}
	if len(labels) > 0 {
		category = labels[0]
	}
	return DefaultNodeColor, category
}

// Build converts query records into a Graph.
//
// Nodes are keyed by the decimal form of their database ID and the first
// occurrence wins. Labels come from the "name" property, falling back to
// the ID. Edges are keyed by relationship ID (first occurrence wins), run
// from startNodeId to endNodeId and are labeled with the relationship type.
// A relationship whose endpoints never appear as nodes fails the build.
func Build(recs []Record, p Palette) (*graph.Graph, error) {
	if p == nil {
		p = DefaultPalette()
	}
	var (
		nodes     []graph.Node
		edges     []graph.Edge
		seenNodes = make(map[string]struct{})
		seenEdges = make(map[string]struct{})
	)

	addNode := func(n *RawNode) {
		if n == nil {
			return
		}
		id := n.Key()
		if _, ok := seenNodes[id]; ok {
			return
		}
		seenNodes[id] = struct{}{}
		color, category := p.Color(n.Labels)
		nodes = append(nodes, graph.Node{
			ID:       id,
			Label:    n.Name(),
			Category: category,
			Color:    color,
			Size:     DefaultNodeSize,
			Meta:     maps.Clone(n.Properties),
		})
	}

	for i, rec := range recs {
		if rec.N == nil {
			return nil, fgerrors.New(fgerrors.ErrCodeInvalidFormat, "record %d: missing source node", i)
		}
		addNode(rec.N)
		addNode(rec.M)

		r := rec.R
		if r == nil {
			continue
		}
		id := r.Key()
		if _, ok := seenEdges[id]; ok {
			continue
		}
		seenEdges[id] = struct{}{}
		edges = append(edges, graph.Edge{
			ID:     id,
			Source: strconv.FormatInt(r.StartNodeID, 10),
			Target: strconv.FormatInt(r.EndNodeID, 10),
			Label:  r.Type,
			Color:  DefaultEdgeColor,
			Size:   DefaultEdgeSize,
			Meta:   maps.Clone(r.Properties),
		})
	}
	return graph.New(nodes, edges)
}
