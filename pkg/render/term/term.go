// Package term rasterizes a layout onto a character grid for terminal
// display.
package term

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// Nominal pixel size of one terminal cell. Cells are about twice as tall
// as they are wide.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Glyphs used on the grid.
const (
	NodeGlyph     = '●'
	SelectedGlyph = '◉'
	PinnedGlyph   = '◆'
	EdgeGlyph     = '·'
)

// ViewSize returns the viewport, in pixels, covered by a cols×rows grid.
func ViewSize(cols, rows int) viewport.Size {
	return viewport.Size{Width: float64(cols) * CellWidth, Height: float64(rows) * CellHeight}
}

// Options configures rasterization.
type Options struct {
	Cols, Rows int
	// Labels prints node labels to the right of each node.
	Labels bool
	// Selected highlights one node ID.
	Selected string
	// Plain disables colors.
	Plain bool
}

type cell struct {
	r     rune
	color string
	bold  bool
}

// Grid is a rasterized frame.
type Grid struct {
	cols, rows int
	cells      []cell
}

// Rasterize projects l through its transform onto a grid. Edges are drawn
// first so nodes and labels stay on top.
func Rasterize(l frame.Layout, opts Options) *Grid {
	g := &Grid{cols: max(opts.Cols, 0), rows: max(opts.Rows, 0)}
	g.cells = make([]cell, g.cols*g.rows)
	for i := range g.cells {
		g.cells[i].r = ' '
	}

	pos := make(map[string][2]int, len(l.Nodes))
	for _, n := range l.Nodes {
		pos[n.ID] = g.project(l.Transform, n.X, n.Y)
	}
	for _, e := range l.Edges {
		a, b := pos[e.Source], pos[e.Target]
		g.line(a, b, cell{r: EdgeGlyph, color: e.Color})
	}
	for _, n := range l.Nodes {
		p := pos[n.ID]
		c := cell{r: NodeGlyph, color: n.Color}
		switch {
		case n.ID == opts.Selected:
			c.r, c.bold = SelectedGlyph, true
		case n.Pinned:
			c.r = PinnedGlyph
		}
		g.set(p[0], p[1], c)
		if opts.Labels {
			lc := cell{color: n.TextColor, bold: c.bold}
			for i, r := range []rune(n.Label) {
				lc.r = r
				g.set(p[0]+2+i, p[1], lc)
			}
		}
	}
	return g
}

func (g *Grid) project(t viewport.Transform, x, y float64) [2]int {
	vx, vy := t.Apply(x, y)
	return [2]int{int(math.Floor(vx / CellWidth)), int(math.Floor(vy / CellHeight))}
}

func (g *Grid) set(x, y int, c cell) {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return
	}
	g.cells[y*g.cols+x] = c
}

// At returns the rune at column x, row y, or 0 when out of range.
func (g *Grid) At(x, y int) rune {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return 0
	}
	return g.cells[y*g.cols+x].r
}

// line draws a Bresenham line between two cells, excluding the endpoints.
func (g *Grid) line(a, b [2]int, c cell) {
	x0, y0, x1, y1 := a[0], a[1], b[0], b[1]
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	// clip very long off-screen lines
	if dx-dy > 4*(g.cols+g.rows) {
		return
	}
	for {
		if (x0 != a[0] || y0 != a[1]) && (x0 != b[0] || y0 != b[1]) {
			g.set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		} else {
			e += dx
			y0 += sy
		}
	}
}

// Plain returns the grid without styling, one line per row.
func (g *Grid) Plain() string {
	var b strings.Builder
	for y := range g.rows {
		for x := range g.cols {
			b.WriteRune(g.cells[y*g.cols+x].r)
		}
		if y < g.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// String renders the grid with lipgloss colors. Runs of cells with the
// same style are rendered together.
func (g *Grid) String() string {
	var b strings.Builder
	var run strings.Builder
	for y := range g.rows {
		var cur cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(style(cur).Render(run.String()))
			run.Reset()
		}
		for x := range g.cols {
			c := g.cells[y*g.cols+x]
			if x > 0 && (c.color != cur.color || c.bold != cur.bold) {
				flush()
			}
			cur = c
			run.WriteRune(c.r)
		}
		flush()
		if y < g.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// namedColors maps the CSS names used for text colors to ANSI codes.
var namedColors = map[string]string{
	"white": "15",
	"black": "0",
	"gray":  "8",
	"grey":  "8",
}

func style(c cell) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(c.bold)
	if c.color == "" {
		return s
	}
	if ansi, ok := namedColors[c.color]; ok {
		return s.Foreground(lipgloss.Color(ansi))
	}
	return s.Foreground(lipgloss.Color(c.color))
}

// Render rasterizes l and returns the styled grid, or the plain grid when
// opts.Plain is set.
func Render(l frame.Layout, opts Options) string {
	g := Rasterize(l, opts)
	if opts.Plain {
		return g.Plain()
	}
	return g.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
