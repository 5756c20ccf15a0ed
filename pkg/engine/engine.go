package engine

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/forcegraph/pkg/attrs"
	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/interact"
	"github.com/matzehuels/forcegraph/pkg/observability"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

var (
	// ErrNoGraph is returned by operations that need a loaded graph.
	ErrNoGraph = errors.New("no graph loaded")

	// ErrStaleGeneration is returned for events addressed to a graph that
	// has since been replaced.
	ErrStaleGeneration = errors.New("stale graph generation")
)

// Config configures an Engine.
type Config struct {
	Params   sim.Params
	Attrs    attrs.Config
	Interact interact.Config
	Logger   *log.Logger
}

// DefaultConfig returns a streaming-mode configuration.
func DefaultConfig() Config {
	return Config{
		Params:   sim.Streaming(),
		Attrs:    attrs.DefaultConfig(),
		Interact: interact.DefaultConfig(),
	}
}

// Engine is a live layout session. See the package documentation for the
// threading rules.
type Engine struct {
	cfg Config
	log *log.Logger

	generation string
	graph      *graph.Graph
	attrs      attrs.Set
	sim        *sim.Simulation
	ctl        *interact.Controller

	subs   []*Subscription
	nextID uint64

	view   viewport.Size // last known view, kept across loads
	framed bool          // settled layout already fitted to view

	heatedAt time.Time // start of the current run toward rest
	heatStep int
	settled  bool
	closed   bool
}

// New returns an engine with no graph loaded.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{cfg: cfg, log: cfg.Logger}
}

// Load replaces the current graph. The running simulation is stopped and
// every listener is detached before the new simulation is created. It
// returns the new generation ID.
func (e *Engine) Load(g *graph.Graph) (string, error) {
	if g == nil {
		return "", fgerrors.New(fgerrors.ErrCodeInvalidInput, "nil graph")
	}
	if err := e.cfg.Params.Validate(); err != nil {
		return "", err
	}

	if e.sim != nil {
		e.sim.Stop()
	}
	e.detachAll()

	e.generation = uuid.NewString()
	e.graph = g
	e.attrs = attrs.Derive(g, e.cfg.Attrs)
	e.sim = sim.New(g, e.cfg.Params)
	e.ctl = interact.NewController(e.sim, e.cfg.Interact)
	e.ctl.SetView(e.view)
	e.heatedAt = time.Now()
	e.heatStep = 0
	e.settled = false
	e.framed = false
	e.closed = false

	e.log.Info("graph loaded",
		"generation", e.generation,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
	observability.Simulation().OnLoad(e.generation, g.NodeCount(), g.EdgeCount())
	return e.generation, nil
}

// Generation returns the ID of the loaded graph, or "" before Load.
func (e *Engine) Generation() string { return e.generation }

// Graph returns the loaded graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Attrs returns the attributes derived for the loaded graph.
func (e *Engine) Attrs() attrs.Set { return e.attrs }

// Loaded reports whether a graph is loaded.
func (e *Engine) Loaded() bool { return e.sim != nil }

// State returns the simulation state, or Idle before Load.
func (e *Engine) State() sim.State {
	if e.sim == nil {
		return sim.Idle
	}
	return e.sim.State()
}

// Snapshot returns the current positions.
func (e *Engine) Snapshot() sim.Snapshot {
	if e.sim == nil {
		return sim.Snapshot{Positions: map[string]sim.Point{}}
	}
	return e.sim.Snapshot()
}

// Pinned returns the pinned nodes of the current simulation.
func (e *Engine) Pinned() map[string]sim.Point {
	if e.sim == nil {
		return nil
	}
	return e.sim.Pinned()
}

// Camera returns the current camera transform.
func (e *Engine) Camera() viewport.Transform {
	if e.ctl == nil {
		return viewport.Identity()
	}
	return e.ctl.Camera()
}

// Active reports whether Tick has work to do: a simulation that is not at
// rest, or a running camera transition.
func (e *Engine) Active() bool {
	if e.sim == nil {
		return false
	}
	return (!e.sim.Stopped() && e.sim.State() != sim.AtRest) || e.ctl.Transitioning()
}

// Transitioning reports whether a camera transition is running.
func (e *Engine) Transitioning() bool {
	return e.ctl != nil && e.ctl.Transitioning()
}

// Subscribe registers l for the current generation.
func (e *Engine) Subscribe(l Listener) *Subscription {
	e.nextID++
	s := &Subscription{
		id:         e.nextID,
		generation: e.generation,
		listener:   l,
		engine:     e,
		done:       make(chan struct{}),
	}
	e.subs = append(e.subs, s)
	return s
}

func (e *Engine) detach(id uint64) {
	i := slices.IndexFunc(e.subs, func(s *Subscription) bool { return s.id == id })
	if i < 0 {
		return
	}
	s := e.subs[i]
	e.subs = slices.Delete(e.subs, i, i+1)
	close(s.done)
	s.listener.OnDetach()
}

func (e *Engine) detachAll() {
	subs := e.subs
	e.subs = nil
	for _, s := range subs {
		close(s.done)
		s.listener.OnDetach()
	}
}

// Listeners returns the number of attached listeners.
func (e *Engine) Listeners() int { return len(e.subs) }

func (e *Engine) notifyStep(snap sim.Snapshot) {
	for _, s := range slices.Clone(e.subs) {
		s.listener.OnStep(e.generation, snap)
	}
}

func (e *Engine) notifyCamera() {
	t := e.ctl.Camera()
	for _, s := range slices.Clone(e.subs) {
		s.listener.OnCamera(e.generation, t)
	}
}

// Handle applies a pointer event. Failing events change nothing; they are
// logged and reported to the observability hooks, and the error is
// returned for callers that care.
func (e *Engine) Handle(ev interact.Event) error {
	if e.sim == nil {
		e.drop(ev, "no_graph", ErrNoGraph)
		return fgerrors.Wrap(fgerrors.ErrCodeNotFound, ErrNoGraph, "handle %s", ev.Kind)
	}
	eff, err := e.ctl.Handle(ev)
	if err != nil {
		e.drop(ev, reason(err), err)
		return err
	}
	if eff.Has(interact.EffectReheat) {
		if e.settled {
			e.heatedAt = time.Now()
			e.heatStep = e.sim.Steps()
		}
		e.settled = false
		e.log.Debug("reheat", "node", ev.NodeID, "alpha", e.sim.Alpha())
		observability.Simulation().OnReheat(e.generation, ev.NodeID)
	}
	if eff.Has(interact.EffectCamera) {
		e.notifyCamera()
	}
	if eff.Has(interact.EffectPin) {
		e.notifyStep(e.sim.Snapshot())
	}
	return nil
}

// HandleFrom is Handle for events tagged with the generation they were
// produced against. Events for an older generation are dropped. An empty
// generation always matches.
func (e *Engine) HandleFrom(generation string, ev interact.Event) error {
	if generation != "" && generation != e.generation {
		e.drop(ev, "stale_generation", ErrStaleGeneration)
		return fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, ErrStaleGeneration, "generation %q", generation)
	}
	return e.Handle(ev)
}

func (e *Engine) drop(ev interact.Event, why string, err error) {
	e.log.Debug("event ignored", "kind", ev.Kind, "node", ev.NodeID, "reason", why, "err", err)
	observability.Simulation().OnEventDropped(string(ev.Kind), why)
}

func reason(err error) string {
	switch {
	case errors.Is(err, sim.ErrUnknownNode):
		return "unknown_node"
	case errors.Is(err, interact.ErrNotDragging):
		return "not_dragging"
	case errors.Is(err, interact.ErrUnknownEvent):
		return "unknown_kind"
	}
	return "invalid"
}

// Tick advances the camera transition by dt and takes one simulation step
// if the simulation is not at rest. It reports whether anything changed.
func (e *Engine) Tick(dt time.Duration) bool {
	if e.sim == nil {
		return false
	}
	changed := false
	if e.ctl.Advance(dt) {
		e.notifyCamera()
		changed = true
	}
	if !e.sim.Stopped() && e.sim.State() != sim.AtRest {
		e.sim.Step()
		e.afterStep()
		e.notifyStep(e.sim.Snapshot())
		changed = true
	}
	return changed
}

func (e *Engine) afterStep() {
	if e.settled || e.sim.State() != sim.AtRest {
		return
	}
	e.settled = true
	steps := e.sim.Steps() - e.heatStep
	d := time.Since(e.heatedAt)
	e.log.Debug("simulation at rest", "generation", e.generation, "steps", steps, "duration", d)
	observability.Simulation().OnSettle(e.generation, steps, d)

	// The first time a layout comes to rest it is framed in the view.
	if !e.framed && e.view.Width > 0 && e.view.Height > 0 {
		e.framed = true
		e.ctl.FitTo(e.view, true)
	}
}

// RunBatch runs the configured step budget without notifying per step,
// then notifies listeners once with the final snapshot.
func (e *Engine) RunBatch(ctx context.Context) (sim.Snapshot, error) {
	if e.sim == nil {
		return sim.Snapshot{}, fgerrors.Wrap(fgerrors.ErrCodeNotFound, ErrNoGraph, "batch")
	}
	start := time.Now()
	n, err := e.sim.Run(ctx, e.cfg.Params.Steps)
	if err != nil {
		return e.sim.Snapshot(), err
	}
	snap := e.sim.Snapshot()
	e.log.Debug("batch layout done", "steps", n, "alpha", snap.Alpha, "duration", time.Since(start))
	e.notifyStep(snap)
	return snap, nil
}

// Frames returns a lazy, restartable sequence of snapshots: each pull takes
// one step and notifies listeners. It ends when the simulation is at rest
// or stopped, and resumes after a re-heat.
func (e *Engine) Frames() iter.Seq[sim.Snapshot] {
	return func(yield func(sim.Snapshot) bool) {
		if e.sim == nil {
			return
		}
		for snap := range e.sim.Frames() {
			e.afterStep()
			e.notifyStep(snap)
			if !yield(snap) {
				return
			}
		}
	}
}

// Fit frames the current layout in view. Animated fits progress through
// Tick; instant fits notify listeners right away.
func (e *Engine) Fit(view viewport.Size, animated bool) (viewport.Transform, error) {
	if e.sim == nil {
		return viewport.Identity(), fgerrors.Wrap(fgerrors.ErrCodeNotFound, ErrNoGraph, "fit")
	}
	e.view = view
	t := e.ctl.FitTo(view, animated)
	if !animated {
		e.notifyCamera()
	}
	return t, nil
}

// Focus centers node id at the given scale.
func (e *Engine) Focus(id string, scale float64, animated bool) error {
	if e.sim == nil {
		return fgerrors.Wrap(fgerrors.ErrCodeNotFound, ErrNoGraph, "focus")
	}
	if err := e.ctl.Focus(id, scale, animated); err != nil {
		e.log.Debug("focus ignored", "node", id, "err", err)
		return err
	}
	if !animated {
		e.notifyCamera()
	}
	return nil
}

// Reset returns the camera to scale 1 centered on the graph origin.
func (e *Engine) Reset() {
	if e.ctl == nil {
		return
	}
	e.ctl.Reset()
	e.notifyCamera()
}

// SetView records the viewport size without changing the camera. The
// first time a loaded layout settles, it is fitted to this size with an
// animated transition.
func (e *Engine) SetView(view viewport.Size) {
	e.view = view
	if e.ctl != nil {
		e.ctl.SetView(view)
	}
}

// Stop halts the simulation. Listeners stay attached, and a later drag
// re-heats it. Stop is idempotent.
func (e *Engine) Stop() {
	if e.sim != nil {
		e.sim.Stop()
	}
}

// Close stops the simulation and detaches every listener. Close is
// idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.Stop()
	e.detachAll()
}
