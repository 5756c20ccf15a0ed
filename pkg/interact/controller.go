// Package interact turns pointer events into camera and simulation updates.
//
// The [Controller] owns the live camera transform and the set of nodes being
// dragged. Dragging pins a node under the pointer and re-heats the
// simulation; zoom and pan change the camera directly, clamped to a scale
// range. Handlers are synchronous and never step the simulation.
package interact

import (
	"errors"
	"math"
	"time"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

var (
	// ErrNotDragging is returned for dragMove/dragEnd on a node without a
	// preceding dragStart.
	ErrNotDragging = errors.New("node is not being dragged")

	// ErrUnknownEvent is returned for an unrecognized event kind.
	ErrUnknownEvent = errors.New("unknown event kind")
)

// Default scale limits.
const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 10.0
)

// Simulator is the part of a simulation the controller drives.
// *sim.Simulation implements it.
type Simulator interface {
	Position(id string) (x, y float64, ok bool)
	Positions() map[string]sim.Point
	Pin(id string, x, y float64) error
	Unpin(id string) error
	Reheat()
	Cool()
}

// Config holds controller settings.
type Config struct {
	MinScale float64          `toml:"min_scale"`
	MaxScale float64          `toml:"max_scale"`
	Duration time.Duration    `toml:"transition"` // Framing animation length
	Fit      viewport.Options `toml:"fit"`
}

// DefaultConfig returns the standard controller settings.
func DefaultConfig() Config {
	return Config{
		MinScale: DefaultMinScale,
		MaxScale: DefaultMaxScale,
		Duration: viewport.DefaultDuration,
		Fit:      viewport.DefaultOptions(),
	}
}

// Effect reports what an event changed.
type Effect uint8

// Effect flags.
const (
	EffectNone   Effect = 0
	EffectCamera Effect = 1 << iota
	EffectPin
	EffectReheat
)

// Has reports whether all flags of o are set in e.
func (e Effect) Has(o Effect) bool { return e&o == o && o != 0 }

// Controller is the interaction state machine. It is not safe for
// concurrent use.
type Controller struct {
	cfg    Config
	sim    Simulator
	camera viewport.Transform
	view   viewport.Size
	drags  map[string]struct{}

	transition *viewport.Transition
	elapsed    time.Duration
}

// NewController returns a controller with the identity camera.
func NewController(s Simulator, cfg Config) *Controller {
	if cfg.MinScale <= 0 {
		cfg.MinScale = DefaultMinScale
	}
	if cfg.MaxScale < cfg.MinScale {
		cfg.MaxScale = math.Max(DefaultMaxScale, cfg.MinScale)
	}
	return &Controller{
		cfg:    cfg,
		sim:    s,
		camera: viewport.Identity(),
		drags:  make(map[string]struct{}),
	}
}

// Camera returns the current camera transform.
func (c *Controller) Camera() viewport.Transform { return c.camera }

// View returns the last viewport size passed to FitTo or SetView.
func (c *Controller) View() viewport.Size { return c.view }

// SetView records the viewport size used by Focus and Reset.
func (c *Controller) SetView(v viewport.Size) { c.view = v }

// Dragging reports whether id is being dragged.
func (c *Controller) Dragging(id string) bool {
	_, ok := c.drags[id]
	return ok
}

// Transitioning reports whether a framing animation is running.
func (c *Controller) Transitioning() bool { return c.transition != nil }

// SetCamera replaces the camera, clamping its scale, and cancels any
// running transition.
func (c *Controller) SetCamera(t viewport.Transform) {
	c.transition = nil
	c.camera = c.clamp(t)
}

func (c *Controller) clamp(t viewport.Transform) viewport.Transform {
	switch {
	case math.IsNaN(t.Scale):
		t.Scale = 1
	case t.Scale <= 0:
		// underflow of a tiny zoom factor
		t.Scale = c.cfg.MinScale
	}
	t.Scale = math.Min(math.Max(t.Scale, c.cfg.MinScale), c.cfg.MaxScale)
	return t
}

// Handle applies one pointer event. Errors leave all state unchanged; the
// caller decides whether to log them.
func (c *Controller) Handle(ev Event) (Effect, error) {
	switch ev.Kind {
	case DragStart:
		return c.dragStart(ev.NodeID)
	case DragMove:
		return c.dragMove(ev.NodeID, ev.X, ev.Y)
	case DragEnd:
		return c.dragEnd(ev.NodeID)
	case Zoom:
		return c.zoom(ev.DeltaScale, ev.X, ev.Y), nil
	case Pan:
		return c.pan(ev.DeltaX, ev.DeltaY), nil
	}
	return EffectNone, fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, ErrUnknownEvent, "kind %q", ev.Kind)
}

func (c *Controller) dragStart(id string) (Effect, error) {
	x, y, ok := c.sim.Position(id)
	if !ok {
		return EffectNone, fgerrors.Wrap(fgerrors.ErrCodeUnknownNode, sim.ErrUnknownNode, "drag %q", id)
	}
	if err := c.sim.Pin(id, x, y); err != nil {
		return EffectNone, err
	}
	c.drags[id] = struct{}{}
	c.sim.Reheat()
	return EffectPin | EffectReheat, nil
}

func (c *Controller) dragMove(id string, vx, vy float64) (Effect, error) {
	if !c.Dragging(id) {
		return EffectNone, fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, ErrNotDragging, "move %q", id)
	}
	if !finite(vx, vy) {
		return EffectNone, nil
	}
	x, y := c.camera.Invert(vx, vy)
	if err := c.sim.Pin(id, x, y); err != nil {
		return EffectNone, err
	}
	return EffectPin, nil
}

func (c *Controller) dragEnd(id string) (Effect, error) {
	if !c.Dragging(id) {
		return EffectNone, fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, ErrNotDragging, "end %q", id)
	}
	if err := c.sim.Unpin(id); err != nil {
		return EffectNone, err
	}
	delete(c.drags, id)
	if len(c.drags) == 0 {
		c.sim.Cool()
	}
	return EffectPin, nil
}

// zoom scales about the pointer so the graph point under it stays put.
func (c *Controller) zoom(ds, px, py float64) Effect {
	if !(ds > 0) || !finite(ds, px, py) {
		return EffectNone
	}
	gx, gy := c.camera.Invert(px, py)
	scale := c.clamp(viewport.Transform{Scale: c.camera.Scale * ds}).Scale
	c.SetCamera(viewport.Transform{
		Scale:      scale,
		TranslateX: px - scale*gx,
		TranslateY: py - scale*gy,
	})
	return EffectCamera
}

func (c *Controller) pan(dx, dy float64) Effect {
	if !finite(dx, dy) || (dx == 0 && dy == 0) {
		return EffectNone
	}
	t := c.camera
	t.TranslateX += dx
	t.TranslateY += dy
	c.SetCamera(t)
	return EffectCamera
}

// FitTo frames the current layout in view. With animated set, the camera
// moves there over the configured duration via Advance; otherwise it jumps.
func (c *Controller) FitTo(view viewport.Size, animated bool) viewport.Transform {
	c.view = view
	pos := c.sim.Positions()
	fit := viewport.FitPositions(pos, view, c.cfg.Fit)
	target := c.clamp(fit)
	if target.Scale != fit.Scale {
		// keep the graph centered at the clamped scale
		b, _ := viewport.Bounds(pos)
		gx, gy := b.Center()
		vx, vy := view.Center()
		target.TranslateX = vx - target.Scale*gx
		target.TranslateY = vy - target.Scale*gy
	}
	c.animate(target, animated)
	return target
}

// Focus centers node id in the last known view at the given scale.
func (c *Controller) Focus(id string, scale float64, animated bool) error {
	x, y, ok := c.sim.Position(id)
	if !ok {
		return fgerrors.Wrap(fgerrors.ErrCodeUnknownNode, sim.ErrUnknownNode, "focus %q", id)
	}
	t := c.clamp(viewport.Transform{Scale: scale})
	cx, cy := c.view.Center()
	t.TranslateX = cx - t.Scale*x
	t.TranslateY = cy - t.Scale*y
	c.animate(t, animated)
	return nil
}

// Reset returns the camera to the identity transform centered on the origin
// of the last known view.
func (c *Controller) Reset() {
	cx, cy := c.view.Center()
	c.SetCamera(viewport.Transform{Scale: 1, TranslateX: cx, TranslateY: cy})
}

func (c *Controller) animate(target viewport.Transform, animated bool) {
	if !animated || c.cfg.Duration <= 0 {
		c.SetCamera(target)
		return
	}
	tr := viewport.NewTransition(c.camera, target)
	tr.Duration = c.cfg.Duration
	c.transition = tr
	c.elapsed = 0
}

// Advance moves a running transition forward by dt. It reports whether the
// camera changed.
func (c *Controller) Advance(dt time.Duration) bool {
	if c.transition == nil {
		return false
	}
	c.elapsed += dt
	t, done := c.transition.At(c.elapsed)
	c.camera = t
	if done {
		c.transition = nil
	}
	return true
}

// ReleaseAll ends every active drag. Used when the graph is replaced.
func (c *Controller) ReleaseAll() {
	for id := range c.drags {
		_ = c.sim.Unpin(id)
		delete(c.drags, id)
	}
	c.sim.Cool()
}
