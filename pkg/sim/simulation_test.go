package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

func pair() *graph.Graph {
	return graph.MustNew(
		[]graph.Node{{ID: "a"}, {ID: "b"}},
		[]graph.Edge{{Source: "a", Target: "b"}},
	)
}

func chain(n int) *graph.Graph {
	nodes := make([]graph.Node, n)
	var edges []graph.Edge
	for i := range n {
		nodes[i] = graph.Node{ID: string(rune('a' + i))}
		if i > 0 {
			edges = append(edges, graph.Edge{Source: nodes[i-1].ID, Target: nodes[i].ID})
		}
	}
	return graph.MustNew(nodes, edges)
}

func dist(s *Simulation, a, b string) float64 {
	ax, ay, _ := s.Position(a)
	bx, by, _ := s.Position(b)
	return math.Hypot(ax-bx, ay-by)
}

func TestSingleNodeSettlesAtOrigin(t *testing.T) {
	for _, p := range []Params{Batch(), Streaming()} {
		s := New(graph.MustNew([]graph.Node{{ID: "only"}}, nil), p)
		if got := s.Step(); got != AtRest {
			t.Fatalf("Step() = %v, want AtRest", got)
		}
		x, y, _ := s.Position("only")
		if x != 0 || y != 0 {
			t.Errorf("position = (%v, %v), want origin", x, y)
		}
		if s.Alpha() != 0 {
			t.Errorf("alpha = %v, want 0", s.Alpha())
		}
	}
}

func TestEmptyGraphSettles(t *testing.T) {
	s := New(graph.MustNew(nil, nil), Batch())
	if got := s.Step(); got != AtRest {
		t.Errorf("Step() = %v, want AtRest", got)
	}
}

func TestSpringConvergesToRestLength(t *testing.T) {
	p := Streaming()
	p.Repulsion = 0
	s := New(pair(), p)

	n, err := s.Settle(context.Background(), 1000)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if s.State() != AtRest {
		t.Fatalf("state = %v after %d steps, want AtRest", s.State(), n)
	}
	if d := dist(s, "a", "b"); math.Abs(d-p.LinkDistance) > 0.5 {
		t.Errorf("distance = %v, want %v", d, p.LinkDistance)
	}
}

func TestStateProgression(t *testing.T) {
	s := New(chain(4), Streaming())
	if s.State() != Idle {
		t.Fatalf("initial state = %v, want Idle", s.State())
	}
	var seen []State
	for range 1000 {
		st := s.Step()
		if len(seen) == 0 || seen[len(seen)-1] != st {
			seen = append(seen, st)
		}
		if st == AtRest {
			break
		}
	}
	want := []State{Running, Settling, AtRest}
	if len(seen) != len(want) {
		t.Fatalf("states = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("states = %v, want %v", seen, want)
		}
	}
	if s.Alpha() >= s.Params().AlphaMin {
		t.Errorf("alpha = %v at rest, want < %v", s.Alpha(), s.Params().AlphaMin)
	}
}

func TestBatchRunsFixedSteps(t *testing.T) {
	s := New(chain(5), Batch())
	n, err := s.Run(context.Background(), s.Params().Steps)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != DefaultBatchSteps || s.Steps() != DefaultBatchSteps {
		t.Errorf("steps = %d/%d, want %d", n, s.Steps(), DefaultBatchSteps)
	}
	if math.Abs(s.Alpha()-0.001) > 1e-6 {
		t.Errorf("alpha after 300 steps = %v, want ~0.001", s.Alpha())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(chain(3), Batch())
	n, err := s.Run(ctx, 10)
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Errorf("Run() = %d, %v; want 0, context.Canceled", n, err)
	}
}

func TestPinnedNodeHoldsPosition(t *testing.T) {
	s := New(chain(4), Streaming())
	if err := s.Pin("b", 50, -20); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	x, y, _ := s.Position("b")
	if x != 50 || y != -20 {
		t.Fatalf("Pin did not snap: (%v, %v)", x, y)
	}
	before := s.Positions()
	for range 50 {
		s.Step()
		x, y, _ := s.Position("b")
		if x != 50 || y != -20 {
			t.Fatalf("pinned node moved to (%v, %v)", x, y)
		}
	}
	after := s.Positions()
	if before["a"] == after["a"] {
		t.Error("free neighbor did not move")
	}
	if m, _ := s.Motion("b"); m != (Pinned{FX: 50, FY: -20}) {
		t.Errorf("Motion() = %#v, want Pinned", m)
	}
}

func TestUnpinResumesForces(t *testing.T) {
	s := New(pair(), Streaming())
	_ = s.Pin("a", 300, 0)
	s.Step()
	if err := s.Unpin("a"); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}
	if _, ok := s.Motion("a"); !ok {
		t.Fatal("Motion() missing")
	}
	if m, _ := s.Motion("a"); m != (Free{}) {
		t.Errorf("Motion() = %#v, want Free{}", m)
	}
	s.Step()
	x, _, _ := s.Position("a")
	if x == 300 {
		t.Error("unpinned node did not move")
	}
	if len(s.Pinned()) != 0 {
		t.Errorf("Pinned() = %v, want empty", s.Pinned())
	}
}

func TestPinUnknownNode(t *testing.T) {
	s := New(pair(), Batch())
	err := s.Pin("ghost", 0, 0)
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Pin() error = %v, want ErrUnknownNode", err)
	}
	if !fgerrors.Is(err, fgerrors.ErrCodeUnknownNode) {
		t.Errorf("Pin() code = %v, want UNKNOWN_NODE", fgerrors.GetCode(err))
	}
	if len(s.Pinned()) != 0 {
		t.Error("failed Pin changed state")
	}
}

func TestReheatAndCool(t *testing.T) {
	s := New(pair(), Streaming())
	if _, err := s.Settle(context.Background(), 0); err != nil {
		t.Fatal(err)
	}

	s.Reheat()
	if s.State() != Running || s.Alpha() < DefaultReheatAlpha {
		t.Fatalf("after Reheat: state %v alpha %v", s.State(), s.Alpha())
	}
	for range 200 {
		if s.Step() == AtRest {
			t.Fatal("reached rest while the alpha target is held")
		}
	}

	s.Cool()
	if _, err := s.Settle(context.Background(), 1000); err != nil {
		t.Fatal(err)
	}
	if s.State() != AtRest {
		t.Errorf("state = %v after Cool, want AtRest", s.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(chain(3), Streaming())
	s.Step()
	s.Stop()
	s.Stop()
	if !s.Stopped() {
		t.Fatal("Stopped() = false")
	}
	steps := s.Steps()
	s.Step()
	if n, _ := s.Run(context.Background(), 10); n != 0 || s.Steps() != steps {
		t.Errorf("stopped simulation stepped: %d -> %d", steps, s.Steps())
	}

	s.Reheat()
	s.Step()
	if s.Steps() != steps+1 {
		t.Error("Reheat did not restart a stopped simulation")
	}
}

func TestFramesLazyAndRestartable(t *testing.T) {
	s := New(chain(3), Streaming())
	count := 0
	for snap := range s.Frames() {
		count++
		if len(snap.Positions) != 3 {
			t.Fatalf("snapshot has %d positions", len(snap.Positions))
		}
		if count == 3 {
			break
		}
	}
	if s.Steps() != 3 {
		t.Fatalf("Steps() = %d, want 3", s.Steps())
	}

	for range s.Frames() {
	}
	if s.State() != AtRest {
		t.Fatalf("state = %v, want AtRest", s.State())
	}
	rested := s.Steps()
	for range s.Frames() {
		t.Fatal("Frames yielded at rest")
	}

	s.Reheat()
	s.Cool()
	for range s.Frames() {
	}
	if s.Steps() <= rested {
		t.Error("Frames did not resume after Reheat")
	}
}

func TestDeterministic(t *testing.T) {
	g := chain(6)
	a := New(g, Batch())
	b := New(g, Batch())
	a.Run(context.Background(), 80)
	b.Run(context.Background(), 80)
	pa, pb := a.Positions(), b.Positions()
	for id, p := range pa {
		if pb[id] != p {
			t.Errorf("node %s: %v != %v", id, p, pb[id])
		}
	}
}

func TestCoincidentNodesStayFinite(t *testing.T) {
	g := graph.MustNew([]graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)
	s := New(g, Streaming(), WithPositions(map[string]Point{
		"a": {}, "b": {}, "c": {},
	}))
	for range 20 {
		s.Step()
	}
	for id, p := range s.Positions() {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			t.Fatalf("node %s at (%v, %v)", id, p.X, p.Y)
		}
	}
	if dist(s, "a", "b") == 0 {
		t.Error("coincident nodes were not separated")
	}
}

func TestDisconnectedGraphStaysBounded(t *testing.T) {
	// two components plus three isolated nodes
	g := graph.MustNew(
		[]graph.Node{{ID: "x"}, {ID: "y"}, {ID: "z"}, {ID: "p"}, {ID: "q"}, {ID: "u"}, {ID: "v"}, {ID: "w"}},
		[]graph.Edge{
			{Source: "x", Target: "y"}, {Source: "y", Target: "z"}, {Source: "z", Target: "x"},
			{Source: "p", Target: "q"},
		},
	)
	const maxRadius = 2000.0

	tests := []struct {
		name   string
		params Params
	}{
		{"batch", Batch()},
		{"streaming", Streaming()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(g, tt.params)
			if _, err := s.Settle(context.Background(), 10000); err != nil {
				t.Fatal(err)
			}
			if s.State() != AtRest {
				t.Fatalf("state = %v after settle, want AtRest", s.State())
			}
			for id, p := range s.Positions() {
				if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
					t.Fatalf("node %s at (%v, %v)", id, p.X, p.Y)
				}
				if r := math.Hypot(p.X, p.Y); r > maxRadius {
					t.Errorf("node %s drifted to radius %.0f", id, r)
				}
			}
		})
	}
}

func TestCustomForces(t *testing.T) {
	s := New(pair(), Streaming(), WithForces(&Center{X: 10, Y: 10}))
	s.Step()
	ax, ay, _ := s.Position("a")
	bx, by, _ := s.Position("b")
	if cx, cy := (ax+bx)/2, (ay+by)/2; math.Abs(cx-10) > 1e-9 || math.Abs(cy-10) > 1e-9 {
		t.Errorf("centroid = (%v, %v), want (10, 10)", cx, cy)
	}
}

func TestStateText(t *testing.T) {
	for _, st := range []State{Idle, Running, Settling, AtRest} {
		b, _ := st.MarshalText()
		var got State
		if err := got.UnmarshalText(b); err != nil || got != st {
			t.Errorf("round trip %v: got %v, %v", st, got, err)
		}
	}
	var st State
	if err := st.UnmarshalText([]byte("warm")); err == nil {
		t.Error("UnmarshalText accepted unknown state")
	}
}
