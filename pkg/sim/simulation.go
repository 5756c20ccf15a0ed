package sim

import (
	"context"
	"errors"
	"iter"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// ErrUnknownNode is returned when a node ID does not name a body of the
// simulation. Callers typically log and ignore it: stale IDs arrive from
// events delivered after a graph swap.
var ErrUnknownNode = errors.New("unknown node")

// State is the lifecycle state of a Simulation.
type State int

const (
	Idle State = iota
	Running
	Settling
	AtRest
)

var stateNames = [...]string{"idle", "running", "settling", "at_rest"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fgerrors.New(fgerrors.ErrCodeInvalidFormat, "unknown simulation state %q", b)
}

// Snapshot is the per-step output handed to renderers.
type Snapshot struct {
	Step      int              `json:"step" bson:"step"`
	Alpha     float64          `json:"alpha" bson:"alpha"`
	State     State            `json:"state" bson:"state"`
	Positions map[string]Point `json:"positions" bson:"positions"`
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithForces replaces the default force list.
func WithForces(forces ...Force) Option {
	return func(s *Simulation) { s.forces = forces }
}

// WithPositions seeds initial positions for the given nodes. Unknown IDs are
// ignored; nodes without an entry keep their spiral placement.
func WithPositions(pos map[string]Point) Option {
	return func(s *Simulation) {
		for id, p := range pos {
			if i, ok := s.field.Index(id); ok {
				s.field.x[i], s.field.y[i] = p.X, p.Y
			}
		}
	}
}

// Simulation advances node positions for one graph. See the package
// documentation for the step algorithm and lifecycle.
type Simulation struct {
	params Params
	field  *Field
	forces []Force

	alpha       float64
	alphaTarget float64
	state       State
	steps       int
	stopped     bool
}

// New creates a simulation for g. Params are used as given; call
// [Params.Validate] first when they come from user input.
func New(g *graph.Graph, p Params, opts ...Option) *Simulation {
	s := &Simulation{
		params: p,
		field:  newField(g, p.Seed),
		alpha:  1,
	}
	s.forces = DefaultForces(g, p)
	for _, opt := range opts {
		opt(s)
	}
	for _, f := range s.forces {
		f.Init(s.field)
	}
	return s
}

// Params returns the parameters the simulation was created with.
func (s *Simulation) Params() Params { return s.params }

// State returns the current lifecycle state.
func (s *Simulation) State() State { return s.state }

// Alpha returns the current energy.
func (s *Simulation) Alpha() float64 { return s.alpha }

// AlphaTarget returns the value alpha is decaying toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// Steps returns the number of steps taken so far.
func (s *Simulation) Steps() int { return s.steps }

// Len returns the number of nodes.
func (s *Simulation) Len() int { return s.field.Len() }

// Stopped reports whether Stop was called since the last Reheat.
func (s *Simulation) Stopped() bool { return s.stopped }

// Step advances the simulation by one step and returns the new state.
// A stopped simulation does not step.
func (s *Simulation) Step() State {
	if s.stopped {
		return s.state
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.params.AlphaDecay
	for _, f := range s.forces {
		f.Apply(s.field, s.alpha)
	}
	s.field.integrate(s.params.VelocityDecay)
	if s.field.Len() <= 1 {
		s.alpha = 0
	}
	s.steps++
	s.state = s.classify()
	return s.state
}

func (s *Simulation) classify() State {
	floor := s.params.AlphaMin
	switch {
	case s.alpha < floor && s.alphaTarget < floor:
		return AtRest
	case s.alphaTarget < floor && s.alpha < s.params.ReheatAlpha:
		return Settling
	default:
		return Running
	}
}

// Run takes up to n steps, stopping early if ctx is cancelled or the
// simulation is stopped. It does not stop at rest: batch layouts use a
// fixed step budget. Returns the number of steps taken.
func (s *Simulation) Run(ctx context.Context, n int) (int, error) {
	for i := range n {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if s.stopped {
			return i, nil
		}
		s.Step()
	}
	return n, nil
}

// Settle steps until the simulation is at rest or stopped, taking at most
// limit steps (limit <= 0 means no limit).
func (s *Simulation) Settle(ctx context.Context, limit int) (int, error) {
	taken := 0
	for s.state != AtRest && !s.stopped && (limit <= 0 || taken < limit) {
		if err := ctx.Err(); err != nil {
			return taken, err
		}
		s.Step()
		taken++
	}
	return taken, nil
}

// Frames returns a lazy sequence that steps once per pulled snapshot until
// the simulation is at rest or stopped. Ranging over it again after a
// Reheat resumes stepping.
func (s *Simulation) Frames() iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		for s.state != AtRest && !s.stopped {
			s.Step()
			if !yield(s.Snapshot()) {
				return
			}
		}
	}
}

// Snapshot returns the current positions.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Step:      s.steps,
		Alpha:     s.alpha,
		State:     s.state,
		Positions: s.Positions(),
	}
}

// Positions returns a copy of all node positions.
func (s *Simulation) Positions() map[string]Point {
	f := s.field
	out := make(map[string]Point, f.Len())
	for i, id := range f.ids {
		out[id] = Point{X: f.x[i], Y: f.y[i]}
	}
	return out
}

// Position returns the position of node id.
func (s *Simulation) Position(id string) (x, y float64, ok bool) {
	i, ok := s.field.Index(id)
	if !ok {
		return 0, 0, false
	}
	x, y = s.field.Pos(i)
	return x, y, true
}

// Motion returns the motion state of node id.
func (s *Simulation) Motion(id string) (Motion, bool) {
	i, ok := s.field.Index(id)
	if !ok {
		return nil, false
	}
	return s.field.motion(i), true
}

// SetMotion replaces the motion state of node id. Pinning moves the node to
// its pin immediately.
func (s *Simulation) SetMotion(id string, m Motion) error {
	i, ok := s.field.Index(id)
	if !ok {
		return fgerrors.Wrap(fgerrors.ErrCodeUnknownNode, ErrUnknownNode, "node %q", id)
	}
	s.field.setMotion(i, m)
	return nil
}

// Pin fixes node id at (x, y).
func (s *Simulation) Pin(id string, x, y float64) error {
	return s.SetMotion(id, Pinned{FX: x, FY: y})
}

// Unpin releases node id at rest velocity. Forces move it from the next step.
func (s *Simulation) Unpin(id string) error {
	return s.SetMotion(id, Free{})
}

// Pinned returns the IDs of all pinned nodes and their pins.
func (s *Simulation) Pinned() map[string]Point {
	out := make(map[string]Point)
	for i, id := range s.field.ids {
		if s.field.pinned[i] {
			out[id] = Point{X: s.field.fx[i], Y: s.field.fy[i]}
		}
	}
	return out
}

// Reheat raises alpha to at least ReheatAlpha, holds the target there and
// restarts a stopped simulation.
func (s *Simulation) Reheat() {
	s.alpha = max(s.alpha, s.params.ReheatAlpha)
	s.alphaTarget = s.params.ReheatAlpha
	s.stopped = false
	s.state = Running
}

// Cool drops the alpha target to zero so the simulation decays to rest.
func (s *Simulation) Cool() {
	s.alphaTarget = 0
}

// Stop halts stepping. Calling Stop more than once has no further effect.
func (s *Simulation) Stop() {
	s.stopped = true
}
