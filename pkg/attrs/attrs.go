// Package attrs derives visual attributes from a graph: node degree, display
// size and label text color, plus edge paint defaults.
//
// Derivation is pure and deterministic. It is recomputed from scratch for
// every graph and never patched incrementally.
package attrs

import (
	"math"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Defaults for [Config].
const (
	DefaultMinSize           = 10.0
	DefaultSizeScale         = 2.0
	DefaultThreshold         = 10
	DefaultHighContrastColor = "white"
	DefaultTextColor         = "gray"
	DefaultEdgeColor         = "#999999"
	DefaultEdgeSize          = 1.0
)

// Config controls attribute derivation.
type Config struct {
	MinSize           float64 `toml:"min_size"`
	SizeScale         float64 `toml:"size_scale"`
	Threshold         int     `toml:"threshold"`           // Degree at which labels switch to HighContrastColor
	HighContrastColor string  `toml:"high_contrast_color"` // Used for hubs
	DefaultTextColor  string  `toml:"default_text_color"`  // Used when a node has no category text color
	EdgeColor         string  `toml:"edge_color"`
	EdgeSize          float64 `toml:"edge_size"`
}

// DefaultConfig returns the standard derivation settings.
func DefaultConfig() Config {
	return Config{
		MinSize:           DefaultMinSize,
		SizeScale:         DefaultSizeScale,
		Threshold:         DefaultThreshold,
		HighContrastColor: DefaultHighContrastColor,
		DefaultTextColor:  DefaultTextColor,
		EdgeColor:         DefaultEdgeColor,
		EdgeSize:          DefaultEdgeSize,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MinSize == 0 {
		c.MinSize = d.MinSize
	}
	if c.SizeScale == 0 {
		c.SizeScale = d.SizeScale
	}
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	if c.HighContrastColor == "" {
		c.HighContrastColor = d.HighContrastColor
	}
	if c.DefaultTextColor == "" {
		c.DefaultTextColor = d.DefaultTextColor
	}
	if c.EdgeColor == "" {
		c.EdgeColor = d.EdgeColor
	}
	if c.EdgeSize == 0 {
		c.EdgeSize = d.EdgeSize
	}
	return c
}

// Node holds the derived attributes of one node.
type Node struct {
	Degree    int     `json:"degree" bson:"degree"`
	Size      float64 `json:"size" bson:"size"`
	TextColor string  `json:"text_color" bson:"text_color"`
}

// Edge holds the paint attributes of one edge after defaults are applied.
type Edge struct {
	Color string  `json:"color" bson:"color"`
	Size  float64 `json:"size" bson:"size"`
}

// Set is the result of [Derive] for one graph.
type Set struct {
	Nodes map[string]Node
	Edges map[string]Edge
}

// Degrees counts incident edges per node. Each edge counts once per distinct
// endpoint, so a self-loop adds exactly 1 and parallel edges each count.
// Every node of g has an entry, isolated nodes map to 0.
func Degrees(g *graph.Graph) map[string]int {
	deg := make(map[string]int, g.NodeCount())
	for _, id := range g.NodeIDs() {
		deg[id] = 0
	}
	for _, e := range g.Edges() {
		deg[e.Source]++
		if !e.IsSelfLoop() {
			deg[e.Target]++
		}
	}
	return deg
}

// Size returns max(MinSize, degree*SizeScale).
func (c Config) Size(degree int) float64 {
	return math.Max(c.MinSize, float64(degree)*c.SizeScale)
}

// TextColor picks the label color for n. Hubs (degree >= Threshold) always
// get HighContrastColor.
func (c Config) TextColor(n graph.Node, degree int) string {
	if degree >= c.Threshold {
		return c.HighContrastColor
	}
	if n.TextColor != "" {
		return n.TextColor
	}
	return c.DefaultTextColor
}

// Derive computes attributes for every node and edge of g.
func Derive(g *graph.Graph, cfg Config) Set {
	cfg = cfg.WithDefaults()
	deg := Degrees(g)

	s := Set{
		Nodes: make(map[string]Node, g.NodeCount()),
		Edges: make(map[string]Edge, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		d := deg[n.ID]
		s.Nodes[n.ID] = Node{
			Degree:    d,
			Size:      cfg.Size(d),
			TextColor: cfg.TextColor(n, d),
		}
	}
	for _, e := range g.Edges() {
		a := Edge{Color: e.Color, Size: e.Size}
		if a.Color == "" {
			a.Color = cfg.EdgeColor
		}
		if a.Size == 0 {
			a.Size = cfg.EdgeSize
		}
		s.Edges[e.ID] = a
	}
	return s
}
