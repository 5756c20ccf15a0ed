// Package nodelink renders positioned graphs as node-link diagrams with
// Graphviz.
//
// Node positions come from the force simulation, not from Graphviz: [ToDOT]
// pins every node with pos="x,y!" and [RenderSVG] runs the neato engine,
// which honors pinned positions and only routes edges.
package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/forcegraph/pkg/render/frame"
)

// pointsPerInch converts layout units (treated as points) to Graphviz inches.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// EdgeLabels draws relationship types on edges.
	EdgeLabels bool
	// Directed emits a digraph with arrowheads.
	Directed bool
}

// ToDOT converts a layout into DOT with every node pinned at its position.
// The y axis is flipped because Graphviz grows upward.
func ToDOT(l frame.Layout, opts Options) string {
	kind, arrow := "graph", "--"
	if opts.Directed {
		kind, arrow = "digraph", "->"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s G {\n", kind)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, penwidth=0, fontsize=10];\n")
	buf.WriteString("  edge [fontsize=8, fontcolor=\"#666666\"];\n")
	buf.WriteString("\n")

	for _, n := range l.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Edges {
		fmt.Fprintf(&buf, "  %q %s %q [%s];\n", e.Source, arrow, e.Target, strings.Join(edgeAttrs(e, opts), ", "))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n frame.Node) []string {
	d := 2 * n.Size / pointsPerInch
	return []string{
		fmt.Sprintf("label=%q", n.Label),
		fmt.Sprintf("pos=\"%s,%s!\"", num(n.X), num(-n.Y)),
		fmt.Sprintf("width=%s", num(d)),
		fmt.Sprintf("height=%s", num(d)),
		fmt.Sprintf("fillcolor=%q", n.Color),
		fmt.Sprintf("fontcolor=%q", n.TextColor),
	}
}

func edgeAttrs(e frame.Edge, opts Options) []string {
	attrs := []string{
		fmt.Sprintf("color=%q", e.Color),
		fmt.Sprintf("penwidth=%s", num(e.Size)),
	}
	if opts.EdgeLabels && e.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", strings.ToLower(e.Label)))
	}
	return attrs
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// RenderSVG lays out dot with neato and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel-sized one so browsers scale the drawing predictably.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %.2f %.2f" width="%.0f" height="%.0f">`,
		m[1], m[2], w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
