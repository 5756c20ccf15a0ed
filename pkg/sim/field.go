package sim

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/forcegraph/pkg/attrs"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

const initialRadius = 10.0

// Field is the mutable body state that forces act on. Bodies are indexed
// 0..Len()-1 in ascending node-ID order.
//
// Forces add to velocities through [Field.Accelerate]; only [Center]-style
// forces move positions directly through [Field.Shift].
type Field struct {
	ids    []string
	index  map[string]int
	degree []int

	x, y   []float64
	vx, vy []float64
	pinned []bool
	fx, fy []float64

	rng *rand.Rand
}

func newField(g *graph.Graph, seed uint64) *Field {
	ids := g.NodeIDs()
	n := len(ids)
	f := &Field{
		ids:    ids,
		index:  make(map[string]int, n),
		degree: make([]int, n),
		x:      make([]float64, n),
		y:      make([]float64, n),
		vx:     make([]float64, n),
		vy:     make([]float64, n),
		pinned: make([]bool, n),
		fx:     make([]float64, n),
		fy:     make([]float64, n),
		rng:    rand.New(rand.NewPCG(seed, seed)),
	}
	deg := attrs.Degrees(g)
	for i, id := range ids {
		f.index[id] = i
		f.degree[i] = deg[id]
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		f.x[i] = r * math.Cos(a)
		f.y[i] = r * math.Sin(a)
	}
	return f
}

// Len returns the number of bodies.
func (f *Field) Len() int { return len(f.ids) }

// ID returns the node ID of body i.
func (f *Field) ID(i int) string { return f.ids[i] }

// Index returns the body index of a node ID.
func (f *Field) Index(id string) (int, bool) {
	i, ok := f.index[id]
	return i, ok
}

// Degree returns the degree of body i.
func (f *Field) Degree(i int) int { return f.degree[i] }

// Pos returns the position of body i.
func (f *Field) Pos(i int) (x, y float64) { return f.x[i], f.y[i] }

// Vel returns the velocity of body i. Pinned bodies report the velocity
// accumulated during the current step, which is discarded on integration.
func (f *Field) Vel(i int) (vx, vy float64) { return f.vx[i], f.vy[i] }

// Accelerate adds (dvx, dvy) to the velocity of body i.
func (f *Field) Accelerate(i int, dvx, dvy float64) {
	f.vx[i] += dvx
	f.vy[i] += dvy
}

// Shift translates every body by (dx, dy).
func (f *Field) Shift(dx, dy float64) {
	for i := range f.x {
		f.x[i] += dx
		f.y[i] += dy
	}
}

// Jiggle returns a tiny random offset used to separate coincident bodies.
func (f *Field) Jiggle() float64 {
	return (f.rng.Float64() - 0.5) * 1e-6
}

// integrate applies damping and moves free bodies. Pinned bodies snap to
// their pin with zero velocity.
func (f *Field) integrate(velocityDecay float64) {
	keep := 1 - velocityDecay
	for i := range f.x {
		if f.pinned[i] {
			f.x[i], f.y[i] = f.fx[i], f.fy[i]
			f.vx[i], f.vy[i] = 0, 0
			continue
		}
		f.vx[i] *= keep
		f.vy[i] *= keep
		f.x[i] += f.vx[i]
		f.y[i] += f.vy[i]
	}
}

func (f *Field) motion(i int) Motion {
	if f.pinned[i] {
		return Pinned{FX: f.fx[i], FY: f.fy[i]}
	}
	return Free{VX: f.vx[i], VY: f.vy[i]}
}

func (f *Field) setMotion(i int, m Motion) {
	switch m := m.(type) {
	case Pinned:
		f.pinned[i] = true
		f.fx[i], f.fy[i] = m.FX, m.FY
		f.x[i], f.y[i] = m.FX, m.FY
		f.vx[i], f.vy[i] = 0, 0
	case Free:
		f.pinned[i] = false
		f.vx[i], f.vy[i] = m.VX, m.VY
	}
}
