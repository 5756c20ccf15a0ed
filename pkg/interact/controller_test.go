package interact

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

func newTestController(t *testing.T) (*Controller, *sim.Simulation) {
	t.Helper()
	g := graph.MustNew(
		[]graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		[]graph.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	)
	s := sim.New(g, sim.Streaming())
	return NewController(s, DefaultConfig()), s
}

func TestDragPinsAndReheats(t *testing.T) {
	c, s := newTestController(t)
	x0, y0, _ := s.Position("a")

	eff, err := c.Handle(Event{Kind: DragStart, NodeID: "a"})
	if err != nil {
		t.Fatalf("dragStart error = %v", err)
	}
	if !eff.Has(EffectPin | EffectReheat) {
		t.Errorf("effect = %b, want pin+reheat", eff)
	}
	if m, _ := s.Motion("a"); m != (sim.Pinned{FX: x0, FY: y0}) {
		t.Errorf("motion = %#v, want pinned at start position", m)
	}
	if s.AlphaTarget() != sim.DefaultReheatAlpha {
		t.Errorf("alpha target = %v, want %v", s.AlphaTarget(), sim.DefaultReheatAlpha)
	}
}

func TestPinnedNodeTracksPointer(t *testing.T) {
	c, s := newTestController(t)
	c.SetCamera(viewport.Transform{Scale: 2, TranslateX: 100, TranslateY: 50})

	mustHandle(t, c, Event{Kind: DragStart, NodeID: "b"})
	for i, p := range [][2]float64{{300, 250}, {120, 90}, {-40, 400}} {
		mustHandle(t, c, Event{Kind: DragMove, NodeID: "b", X: p[0], Y: p[1]})
		s.Step()
		s.Step()
		x, y, _ := s.Position("b")
		wx, wy := (p[0]-100)/2, (p[1]-50)/2
		if x != wx || y != wy {
			t.Fatalf("move %d: node at (%v, %v), want (%v, %v)", i, x, y, wx, wy)
		}
	}
}

func TestReleasedNodeDiverges(t *testing.T) {
	c, s := newTestController(t)
	mustHandle(t, c, Event{Kind: DragStart, NodeID: "c"})
	mustHandle(t, c, Event{Kind: DragMove, NodeID: "c", X: 500, Y: 500})
	s.Step()
	mustHandle(t, c, Event{Kind: DragEnd, NodeID: "c"})

	if s.AlphaTarget() != 0 {
		t.Errorf("alpha target = %v after last drag end, want 0", s.AlphaTarget())
	}
	for range 10 {
		s.Step()
	}
	x, y, _ := s.Position("c")
	if x == 500 && y == 500 {
		t.Error("released node stayed at the pointer")
	}
	if _, ok := s.Motion("c"); !ok {
		t.Fatal("node missing")
	}
	if m, _ := s.Motion("c"); m == (sim.Pinned{FX: 500, FY: 500}) {
		t.Error("node still pinned")
	}
}

func TestDragEndKeepsHeatWhileOthersDragged(t *testing.T) {
	c, s := newTestController(t)
	mustHandle(t, c, Event{Kind: DragStart, NodeID: "a"})
	mustHandle(t, c, Event{Kind: DragStart, NodeID: "b"})
	mustHandle(t, c, Event{Kind: DragEnd, NodeID: "a"})
	if s.AlphaTarget() == 0 {
		t.Error("cooled while another node is still dragged")
	}
	c.ReleaseAll()
	if s.AlphaTarget() != 0 || len(s.Pinned()) != 0 {
		t.Errorf("ReleaseAll left target %v pins %v", s.AlphaTarget(), s.Pinned())
	}
}

func TestDragErrorsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		ev      Event
		wantErr error
		code    fgerrors.Code
	}{
		{"unknown node", Event{Kind: DragStart, NodeID: "ghost"}, sim.ErrUnknownNode, fgerrors.ErrCodeUnknownNode},
		{"move without start", Event{Kind: DragMove, NodeID: "a", X: 1, Y: 1}, ErrNotDragging, fgerrors.ErrCodeInvalidInput},
		{"end without start", Event{Kind: DragEnd, NodeID: "a"}, ErrNotDragging, fgerrors.ErrCodeInvalidInput},
		{"unknown kind", Event{Kind: "tap"}, ErrUnknownEvent, fgerrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newTestController(t)
			before := s.Positions()
			eff, err := c.Handle(tt.ev)
			if !errors.Is(err, tt.wantErr) || !fgerrors.Is(err, tt.code) {
				t.Fatalf("Handle() error = %v, want %v (%s)", err, tt.wantErr, tt.code)
			}
			if eff != EffectNone {
				t.Errorf("effect = %b, want none", eff)
			}
			if len(s.Pinned()) != 0 || s.AlphaTarget() != 0 || c.Camera() != viewport.Identity() {
				t.Error("state changed on error")
			}
			for id, p := range s.Positions() {
				if before[id] != p {
					t.Errorf("node %s moved", id)
				}
			}
		})
	}
}

func TestZoomClamped(t *testing.T) {
	c, _ := newTestController(t)
	for _, ds := range []float64{3, 3, 3, 3, 0.01, 0.01, 0.5, 100, 1e-9} {
		c.Handle(Event{Kind: Zoom, DeltaScale: ds, X: 200, Y: 100})
		if s := c.Camera().Scale; s < DefaultMinScale || s > DefaultMaxScale {
			t.Fatalf("scale %v escaped [%v, %v]", s, DefaultMinScale, DefaultMaxScale)
		}
	}
	c.SetCamera(viewport.Transform{Scale: 1000})
	if c.Camera().Scale != DefaultMaxScale {
		t.Errorf("SetCamera scale = %v, want clamped", c.Camera().Scale)
	}
}

func TestZoomSaturatesOnExtremeDelta(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		ds    float64
		want  float64
	}{
		{"overflow", 5, math.MaxFloat64, DefaultMaxScale},
		{"underflow", 0.5, math.SmallestNonzeroFloat64, DefaultMinScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(t)
			c.SetCamera(viewport.Transform{Scale: tt.start})
			if _, err := c.Handle(Event{Kind: Zoom, DeltaScale: tt.ds, X: 100, Y: 100}); err != nil {
				t.Fatal(err)
			}
			got := c.Camera()
			if got.Scale != tt.want {
				t.Errorf("scale = %v, want %v", got.Scale, tt.want)
			}
			if !finite(got.TranslateX, got.TranslateY) {
				t.Errorf("translate not finite: %+v", got)
			}
		})
	}
}

func TestZoomKeepsPointerFixed(t *testing.T) {
	c, _ := newTestController(t)
	c.SetCamera(viewport.Transform{Scale: 1.5, TranslateX: 20, TranslateY: -10})
	gx, gy := c.Camera().Invert(320, 240)

	eff, err := c.Handle(Event{Kind: Zoom, DeltaScale: 2, X: 320, Y: 240})
	if err != nil || eff != EffectCamera {
		t.Fatalf("Handle() = %v, %v", eff, err)
	}
	if c.Camera().Scale != 3 {
		t.Errorf("scale = %v, want 3", c.Camera().Scale)
	}
	vx, vy := c.Camera().Apply(gx, gy)
	if math.Abs(vx-320) > 1e-9 || math.Abs(vy-240) > 1e-9 {
		t.Errorf("anchor moved to (%v, %v)", vx, vy)
	}
}

func TestZoomIgnoresBadDelta(t *testing.T) {
	c, _ := newTestController(t)
	for _, ds := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if eff, err := c.Handle(Event{Kind: Zoom, DeltaScale: ds}); eff != EffectNone || err != nil {
			t.Errorf("zoom %v: %v, %v", ds, eff, err)
		}
	}
	if c.Camera() != viewport.Identity() {
		t.Errorf("camera = %+v, want identity", c.Camera())
	}
}

func TestPan(t *testing.T) {
	c, _ := newTestController(t)
	mustHandle(t, c, Event{Kind: Pan, DeltaX: 15, DeltaY: -5})
	mustHandle(t, c, Event{Kind: Pan, DeltaX: 5, DeltaY: -5})
	if got := c.Camera(); got.TranslateX != 20 || got.TranslateY != -10 || got.Scale != 1 {
		t.Errorf("camera = %+v", got)
	}
}

func TestFitToAnimated(t *testing.T) {
	c, s := newTestController(t)
	if _, err := s.Settle(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	view := viewport.Size{Width: 800, Height: 600}
	target := c.FitTo(view, true)

	if !c.Transitioning() {
		t.Fatal("expected a running transition")
	}
	if c.Camera() != viewport.Identity() {
		t.Error("animated fit jumped immediately")
	}
	if want := viewport.FitPositions(s.Positions(), view, viewport.DefaultOptions()); want != target {
		t.Errorf("target = %+v, want %+v", target, want)
	}
	for c.Advance(100 * time.Millisecond) {
	}
	if c.Camera() != target || c.Transitioning() {
		t.Errorf("after transition camera = %+v, want %+v", c.Camera(), target)
	}
}

func TestUserZoomCancelsTransition(t *testing.T) {
	c, _ := newTestController(t)
	c.FitTo(viewport.Size{Width: 800, Height: 600}, true)
	c.Advance(100 * time.Millisecond)
	mustHandle(t, c, Event{Kind: Zoom, DeltaScale: 1.1, X: 10, Y: 10})
	if c.Transitioning() {
		t.Error("zoom did not cancel the transition")
	}
	cam := c.Camera()
	if c.Advance(time.Second) || c.Camera() != cam {
		t.Error("camera moved after cancellation")
	}
}

func TestFitToInstant(t *testing.T) {
	c, _ := newTestController(t)
	target := c.FitTo(viewport.Size{Width: 400, Height: 400}, false)
	if c.Transitioning() || c.Camera() != target {
		t.Errorf("camera = %+v, want %+v", c.Camera(), target)
	}
}

func TestFocusAndReset(t *testing.T) {
	c, s := newTestController(t)
	c.SetView(viewport.Size{Width: 200, Height: 100})
	if err := c.Focus("b", 4, false); err != nil {
		t.Fatalf("Focus() error = %v", err)
	}
	x, y, _ := s.Position("b")
	vx, vy := c.Camera().Apply(x, y)
	if math.Abs(vx-100) > 1e-9 || math.Abs(vy-50) > 1e-9 {
		t.Errorf("focused node at (%v, %v), want view center", vx, vy)
	}
	if err := c.Focus("ghost", 1, false); !errors.Is(err, sim.ErrUnknownNode) {
		t.Errorf("Focus(ghost) error = %v", err)
	}

	c.Reset()
	if got := c.Camera(); got != (viewport.Transform{Scale: 1, TranslateX: 100, TranslateY: 50}) {
		t.Errorf("Reset() camera = %+v", got)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"dragStart", DragStart},
		{"drag_move", DragMove},
		{"DRAGEND", DragEnd},
		{"zoom", Zoom},
		{"pan", Pan},
	}
	for _, tt := range tests {
		if got, err := ParseKind(tt.in); err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseKind("pinch"); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("ParseKind(pinch) error = %v", err)
	}
}

func mustHandle(t *testing.T, c *Controller, ev Event) {
	t.Helper()
	if _, err := c.Handle(ev); err != nil {
		t.Fatalf("Handle(%+v) error = %v", ev, err)
	}
}
