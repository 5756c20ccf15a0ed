package graph

import "maps"

// Metadata stores arbitrary key-value pairs attached to nodes or edges.
// Adapters copy the upstream record properties here; the layout never reads it.
type Metadata map[string]any

// Node is a vertex of the property graph.
//
// Position, pin and velocity are not part of the model: they belong to the
// simulation. Degree is derived by pkg/attrs and is not user-settable.
type Node struct {
	ID        string   `json:"id" bson:"id"`
	Label     string   `json:"label,omitempty" bson:"label,omitempty"` // Display label (defaults to ID)
	Category  string   `json:"category,omitempty" bson:"category,omitempty"`
	Color     string   `json:"color,omitempty" bson:"color,omitempty"`
	TextColor string   `json:"text_color,omitempty" bson:"text_color,omitempty"` // Category text color, if any
	Size      float64  `json:"size,omitempty" bson:"size,omitempty"`             // Base size before degree scaling
	Meta      Metadata `json:"meta,omitempty" bson:"meta,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed edge between two nodes. Direction matters for the data
// model only; layout forces treat edges as undirected. Parallel edges between
// the same pair are distinct.
type Edge struct {
	ID     string   `json:"id" bson:"id"`
	Source string   `json:"source" bson:"source"`
	Target string   `json:"target" bson:"target"`
	Label  string   `json:"label,omitempty" bson:"label,omitempty"`
	Color  string   `json:"color,omitempty" bson:"color,omitempty"`
	Size   float64  `json:"size,omitempty" bson:"size,omitempty"`
	Meta   Metadata `json:"meta,omitempty" bson:"meta,omitempty"`
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e Edge) IsSelfLoop() bool { return e.Source == e.Target }

func (n Node) clone() Node {
	n.Meta = maps.Clone(n.Meta)
	return n
}

func (e Edge) clone() Edge {
	e.Meta = maps.Clone(e.Meta)
	return e
}
