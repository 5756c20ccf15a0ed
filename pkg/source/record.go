package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Record is one row of a graph query: a source node, the relationship and
// the target node. R and M are nil for rows that match a lone node.
type Record struct {
	N *RawNode         `json:"n" bson:"n"`
	R *RawRelationship `json:"r,omitempty" bson:"r,omitempty"`
	M *RawNode         `json:"m,omitempty" bson:"m,omitempty"`
}

// RawNode is a node as returned by the graph database.
type RawNode struct {
	ID         int64          `json:"id" bson:"id"`
	Labels     []string       `json:"labels" bson:"labels"`
	Properties map[string]any `json:"properties" bson:"properties"`
}

// Key returns the graph node ID for n.
func (n *RawNode) Key() string { return strconv.FormatInt(n.ID, 10) }

// Name returns the "name" property, or "" when absent or not a string.
func (n *RawNode) Name() string {
	s, _ := n.Properties["name"].(string)
	return s
}

// RawRelationship is a relationship as returned by the graph database.
type RawRelationship struct {
	ID          int64          `json:"id" bson:"id"`
	Type        string         `json:"type" bson:"type"`
	StartNodeID int64          `json:"startNodeId" bson:"startNodeId"`
	EndNodeID   int64          `json:"endNodeId" bson:"endNodeId"`
	Properties  map[string]any `json:"properties" bson:"properties"`
}

// Key returns the graph edge ID for r.
func (r *RawRelationship) Key() string { return strconv.FormatInt(r.ID, 10) }

// DecodeRecords reads a JSON array of records.
func DecodeRecords(r io.Reader) ([]Record, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return recs, nil
}

// EncodeRecords writes records as a JSON array.
func EncodeRecords(w io.Writer, recs []Record) error {
	if err := json.NewEncoder(w).Encode(recs); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
