package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Document - Wire Format
// =============================================================================

// Document is the canonical serialization format for graphs.
// Used for API payloads, storage and cross-tool compatibility.
//
// Nodes are sorted by ID and edges keep construction order, so
// build → export → re-import produces an identical Graph.
type Document struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Export converts the graph to its serialization format.
func (g *Graph) Export() Document {
	return Document{Nodes: g.Nodes(), Edges: g.Edges()}
}

// Parse validates a Document and builds the Graph it describes.
func (d Document) Parse() (*Graph, error) {
	return New(d.Nodes, d.Edges)
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a Graph to indented JSON bytes.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a Graph as JSON to an io.Writer.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Export()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes a Graph to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}

// ReadGraph decodes a JSON document from an io.Reader into a Graph.
// Construction errors are returned unchanged so callers can match sentinels.
func ReadGraph(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc.Parse()
}

// ReadGraphFile reads a JSON file and returns the decoded Graph.
func ReadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}
