package sim

import (
	"math"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Force contributes to body motion once per step.
type Force interface {
	// Init is called once when the force is attached to a field.
	Init(f *Field)
	// Apply runs the force at the current alpha.
	Apply(f *Field, alpha float64)
}

// =============================================================================
// ManyBody
// =============================================================================

// ManyBody applies a pairwise inverse-distance force between all bodies.
// Negative strength repels. Exact O(n²); no spatial approximation.
type ManyBody struct {
	Strength    float64
	DistanceMin float64
}

// Init implements Force.
func (*ManyBody) Init(*Field) {}

// Apply implements Force.
func (m *ManyBody) Apply(f *Field, alpha float64) {
	if m.Strength == 0 {
		return
	}
	dmin2 := m.DistanceMin * m.DistanceMin
	n := f.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			x := f.x[j] - f.x[i]
			y := f.y[j] - f.y[i]
			if x == 0 {
				x = f.Jiggle()
			}
			if y == 0 {
				y = f.Jiggle()
			}
			l := x*x + y*y
			if l < dmin2 {
				l = math.Sqrt(dmin2 * l)
			}
			w := m.Strength * alpha / l
			f.Accelerate(i, x*w, y*w)
			f.Accelerate(j, -x*w, -y*w)
		}
	}
}

// =============================================================================
// Link
// =============================================================================

// Link pulls the endpoints of every edge toward Distance apart. Self-loops
// are ignored. Each spring's strength is 1/min(deg(s), deg(t)) counted over
// springs, and the correction is split between the endpoints in proportion
// to their spring counts, so hubs move less than leaves.
type Link struct {
	Distance   float64
	Iterations int

	edges []graph.Edge
	pairs [][2]int
	count []int
}

// NewLink returns a spring force over edges.
func NewLink(edges []graph.Edge, distance float64, iterations int) *Link {
	return &Link{Distance: distance, Iterations: iterations, edges: edges}
}

// Init resolves edge endpoints to body indices. Edges whose endpoints are
// not bodies of f are skipped.
func (l *Link) Init(f *Field) {
	l.pairs = l.pairs[:0]
	l.count = make([]int, f.Len())
	for _, e := range l.edges {
		if e.IsSelfLoop() {
			continue
		}
		s, ok1 := f.Index(e.Source)
		t, ok2 := f.Index(e.Target)
		if !ok1 || !ok2 {
			continue
		}
		l.pairs = append(l.pairs, [2]int{s, t})
		l.count[s]++
		l.count[t]++
	}
}

// Apply implements Force.
func (l *Link) Apply(f *Field, alpha float64) {
	iters := max(l.Iterations, 1)
	for range iters {
		for _, p := range l.pairs {
			s, t := p[0], p[1]
			x := f.x[t] + f.vx[t] - f.x[s] - f.vx[s]
			y := f.y[t] + f.vy[t] - f.y[s] - f.vy[s]
			if x == 0 {
				x = f.Jiggle()
			}
			if y == 0 {
				y = f.Jiggle()
			}
			d := math.Sqrt(x*x + y*y)
			strength := 1 / float64(min(l.count[s], l.count[t]))
			k := (d - l.Distance) / d * alpha * strength
			x *= k
			y *= k
			bias := float64(l.count[s]) / float64(l.count[s]+l.count[t])
			f.Accelerate(t, -x*bias, -y*bias)
			f.Accelerate(s, x*(1-bias), y*(1-bias))
		}
	}
}

// =============================================================================
// Center
// =============================================================================

// Center translates all bodies so that their centroid lands on (X, Y).
// It moves positions, not velocities, and therefore ignores alpha.
type Center struct {
	X, Y float64
}

// Init implements Force.
func (*Center) Init(*Field) {}

// Apply implements Force.
func (c *Center) Apply(f *Field, _ float64) {
	n := f.Len()
	if n == 0 {
		return
	}
	var sx, sy float64
	for i := range n {
		sx += f.x[i]
		sy += f.y[i]
	}
	f.Shift(c.X-sx/float64(n), c.Y-sy/float64(n))
}

// =============================================================================
// Axis
// =============================================================================

// AxisX pulls each body's x toward Target with strength degree*Bias.
type AxisX struct {
	Target float64
	Bias   float64
}

// Init implements Force.
func (*AxisX) Init(*Field) {}

// Apply implements Force.
func (a *AxisX) Apply(f *Field, alpha float64) {
	for i := range f.Len() {
		f.vx[i] += (a.Target - f.x[i]) * float64(f.degree[i]) * a.Bias * alpha
	}
}

// AxisY pulls each body's y toward Target with strength degree*Bias.
type AxisY struct {
	Target float64
	Bias   float64
}

// Init implements Force.
func (*AxisY) Init(*Field) {}

// Apply implements Force.
func (a *AxisY) Apply(f *Field, alpha float64) {
	for i := range f.Len() {
		f.vy[i] += (a.Target - f.y[i]) * float64(f.degree[i]) * a.Bias * alpha
	}
}

// DefaultForces returns the standard force list for g under p, in
// application order.
func DefaultForces(g *graph.Graph, p Params) []Force {
	forces := []Force{
		NewLink(g.Edges(), p.LinkDistance, p.LinkIterations),
		&ManyBody{Strength: p.Repulsion, DistanceMin: p.DistanceMin},
		&Center{},
	}
	if p.AxisBias > 0 {
		forces = append(forces, &AxisX{Bias: p.AxisBias}, &AxisY{Bias: p.AxisBias})
	}
	return forces
}
