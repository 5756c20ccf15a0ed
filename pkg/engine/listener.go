package engine

import (
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// Listener receives engine updates on the engine's owner goroutine.
// Implementations must not block and must not call back into the engine.
type Listener interface {
	// OnStep is called after every simulation step and after pin changes.
	OnStep(generation string, snap sim.Snapshot)
	// OnCamera is called whenever the camera transform changes.
	OnCamera(generation string, t viewport.Transform)
	// OnDetach is called once when the listener is removed.
	OnDetach()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Step   func(generation string, snap sim.Snapshot)
	Camera func(generation string, t viewport.Transform)
	Detach func()
}

func (f ListenerFuncs) OnStep(gen string, snap sim.Snapshot) {
	if f.Step != nil {
		f.Step(gen, snap)
	}
}

func (f ListenerFuncs) OnCamera(gen string, t viewport.Transform) {
	if f.Camera != nil {
		f.Camera(gen, t)
	}
}

func (f ListenerFuncs) OnDetach() {
	if f.Detach != nil {
		f.Detach()
	}
}

// Subscription is the handle returned by [Engine.Subscribe].
type Subscription struct {
	id         uint64
	generation string
	listener   Listener
	engine     *Engine
	done       chan struct{}
}

// Generation returns the graph generation the subscription belongs to.
func (s *Subscription) Generation() string { return s.generation }

// Done is closed when the listener has been detached.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel detaches the listener. It must be called on the engine's owner
// goroutine; calling it again has no effect.
func (s *Subscription) Cancel() {
	s.engine.detach(s.id)
}
