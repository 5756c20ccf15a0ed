// Package render turns positioned graphs into outputs.
//
// Every renderer consumes a [frame.Layout]: one snapshot of node positions
// joined with the graph's paint attributes and the camera transform. The
// subpackages differ only in what they produce:
//
//   - [frame]: the Layout document itself, as JSON
//   - [nodelink]: Graphviz DOT with pinned positions, and SVG via go-graphviz
//   - [term]: a colored character grid for terminals
//
// A typical batch flow:
//
//	l := frame.New(gen, g, set, snap, camera)
//	dot := nodelink.ToDOT(l, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [frame]: github.com/matzehuels/forcegraph/pkg/render/frame
// [nodelink]: github.com/matzehuels/forcegraph/pkg/render/nodelink
// [term]: github.com/matzehuels/forcegraph/pkg/render/term
package render
