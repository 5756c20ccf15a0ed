package graph_test

import (
	"errors"
	"fmt"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

func ExampleNew() {
	g, err := graph.New(
		[]graph.Node{{ID: "go", Label: "Go"}, {ID: "gc"}},
		[]graph.Edge{{Source: "go", Target: "gc", Label: "uses"}},
	)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, n := range g.Nodes() {
		fmt.Println(n.ID, n.DisplayLabel())
	}
	fmt.Println("edge:", g.Edges()[0].ID)
	// Output:
	// gc gc
	// go Go
	// edge: e0
}

func ExampleNew_unknownNode() {
	_, err := graph.New(
		[]graph.Node{{ID: "a"}},
		[]graph.Edge{{ID: "r", Source: "a", Target: "b"}},
	)
	fmt.Println(errors.Is(err, graph.ErrUnknownTargetNode))
	// Output: true
}
