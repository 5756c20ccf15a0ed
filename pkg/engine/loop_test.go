package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/forcegraph/pkg/interact"
	"github.com/matzehuels/forcegraph/pkg/sim"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(New(DefaultConfig()), time.Millisecond)
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestLoopRunsToRest(t *testing.T) {
	l, _ := startLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	steps := make(chan sim.Snapshot, 4096)
	err := l.Do(ctx, func(e *Engine) error {
		if _, err := e.Load(triangle()); err != nil {
			return err
		}
		e.Subscribe(ListenerFuncs{Step: func(_ string, s sim.Snapshot) {
			select {
			case steps <- s:
			default:
			}
		}})
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	for {
		select {
		case s := <-steps:
			if s.State == sim.AtRest {
				return
			}
		case <-ctx.Done():
			t.Fatal("loop never reached rest")
		}
	}
}

func TestLoopPostNeverBlocks(t *testing.T) {
	l := NewLoop(New(DefaultConfig()), time.Millisecond)
	var n atomic.Int64
	for range 10000 {
		l.Post(func(*Engine) { n.Add(1) })
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	if err := l.Do(ctx, func(*Engine) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if got := n.Load(); got != 10000 {
		t.Errorf("ran %d posted items, want 10000", got)
	}
}

func TestLoopDispatchOrdersEvents(t *testing.T) {
	l, _ := startLoop(t)
	ctx := context.Background()

	var gen string
	if err := l.Do(ctx, func(e *Engine) error {
		var err error
		gen, err = e.Load(triangle())
		return err
	}); err != nil {
		t.Fatal(err)
	}

	l.Dispatch(gen, interact.Event{Kind: interact.DragStart, NodeID: "b"})
	l.Dispatch(gen, interact.Event{Kind: interact.DragMove, NodeID: "b", X: 10, Y: 20})
	l.Dispatch("stale", interact.Event{Kind: interact.DragMove, NodeID: "b", X: 99, Y: 99})

	var pin sim.Point
	if err := l.Do(ctx, func(e *Engine) error {
		pin = e.Pinned()["b"]
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if pin != (sim.Point{X: 10, Y: 20}) {
		t.Errorf("pin = %+v, want (10, 20)", pin)
	}
}

func TestLoopStop(t *testing.T) {
	l := NewLoop(New(DefaultConfig()), time.Millisecond)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()

	l.Stop()
	l.Stop()
	if err := <-errc; err != nil {
		t.Errorf("Run() = %v, want nil after Stop", err)
	}
	if err := l.Do(context.Background(), func(*Engine) error { return nil }); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Do after stop = %v, want ErrLoopStopped", err)
	}
	if err := l.Run(context.Background()); err == nil {
		t.Error("second Run succeeded")
	}
}

func TestLoopContextCancel(t *testing.T) {
	l := NewLoop(New(DefaultConfig()), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}
