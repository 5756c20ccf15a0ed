// Package frame defines the Layout document shared by all renderers and
// the HTTP API.
package frame

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/forcegraph/pkg/attrs"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// Layout is one rendered frame: every node with its position and paint,
// every edge, and the camera at the time of capture.
type Layout struct {
	Generation string             `json:"generation,omitempty" bson:"generation,omitempty"`
	Step       int                `json:"step" bson:"step"`
	Alpha      float64            `json:"alpha" bson:"alpha"`
	State      sim.State          `json:"state" bson:"state"`
	Transform  viewport.Transform `json:"transform" bson:"transform"`
	Nodes      []Node             `json:"nodes" bson:"nodes"`
	Edges      []Edge             `json:"edges" bson:"edges"`
}

// Node is a positioned, painted node.
type Node struct {
	ID        string  `json:"id" bson:"id"`
	Label     string  `json:"label" bson:"label"`
	Category  string  `json:"category,omitempty" bson:"category,omitempty"`
	Color     string  `json:"color" bson:"color"`
	TextColor string  `json:"text_color" bson:"text_color"`
	Size      float64 `json:"size" bson:"size"`
	Degree    int     `json:"degree" bson:"degree"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
	Pinned    bool    `json:"pinned,omitempty" bson:"pinned,omitempty"`
}

// Edge is a painted edge between two node IDs.
type Edge struct {
	ID     string  `json:"id" bson:"id"`
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Label  string  `json:"label,omitempty" bson:"label,omitempty"`
	Color  string  `json:"color" bson:"color"`
	Size   float64 `json:"size" bson:"size"`
}

// New joins a graph, its derived attributes, a simulation snapshot and a
// camera. pinned may be nil. Nodes appear in graph order; nodes missing
// from the snapshot are placed at the origin.
func New(gen string, g *graph.Graph, set attrs.Set, snap sim.Snapshot, t viewport.Transform, pinned map[string]sim.Point) Layout {
	l := Layout{
		Generation: gen,
		Step:       snap.Step,
		Alpha:      snap.Alpha,
		State:      snap.State,
		Transform:  t,
		Nodes:      make([]Node, 0, g.NodeCount()),
		Edges:      make([]Edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		a := set.Nodes[n.ID]
		p := snap.Positions[n.ID]
		_, pin := pinned[n.ID]
		l.Nodes = append(l.Nodes, Node{
			ID:        n.ID,
			Label:     n.DisplayLabel(),
			Category:  n.Category,
			Color:     n.Color,
			TextColor: a.TextColor,
			Size:      a.Size,
			Degree:    a.Degree,
			X:         p.X,
			Y:         p.Y,
			Pinned:    pin,
		})
	}
	for _, e := range g.Edges() {
		a := set.Edges[e.ID]
		l.Edges = append(l.Edges, Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Label:  e.Label,
			Color:  a.Color,
			Size:   a.Size,
		})
	}
	return l
}

// Positions returns node positions keyed by ID.
func (l Layout) Positions() map[string]sim.Point {
	out := make(map[string]sim.Point, len(l.Nodes))
	for _, n := range l.Nodes {
		out[n.ID] = sim.Point{X: n.X, Y: n.Y}
	}
	return out
}

// Node returns the node with the given ID.
func (l Layout) Node(id string) (Node, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Marshal encodes l as indented JSON.
func (l Layout) Marshal() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal decodes a Layout from JSON.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}

// Write encodes l as JSON to w.
func Write(l Layout, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// Read decodes a Layout from r.
func Read(r io.Reader) (Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}

// WriteFile writes l to path.
func WriteFile(l Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(l, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a Layout from path.
func ReadFile(path string) (Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return Layout{}, err
	}
	defer f.Close()
	return Read(f)
}
