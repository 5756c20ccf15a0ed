package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matzehuels/forcegraph/pkg/interact"
)

// DefaultInterval is the streaming frame interval (about 60 frames/s).
const DefaultInterval = 16 * time.Millisecond

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("engine loop stopped")

// Loop owns an Engine on a single goroutine. Work is posted to an unbounded
// mailbox and runs between simulation steps.
type Loop struct {
	engine   *Engine
	interval time.Duration

	mu    sync.Mutex
	queue []func(*Engine)

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
}

// NewLoop wraps e. The engine must not be used directly once Run starts.
func NewLoop(e *Engine, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		engine:   e,
		interval: interval,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drives the engine until ctx is cancelled or Stop is called. On exit
// the engine is closed. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	err := errors.New("engine loop already ran")
	l.runOnce.Do(func() { err = l.run(ctx) })
	return err
}

func (l *Loop) run(ctx context.Context) error {
	defer close(l.done)
	defer l.engine.Close()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			l.drain()
			return ctx.Err()
		case <-l.stop:
			l.drain()
			return nil
		case <-l.wake:
			l.drain()
		case now := <-ticker.C:
			l.drain()
			l.engine.Tick(now.Sub(last))
			last = now
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn(l.engine)
		}
	}
}

// Post schedules fn on the owner goroutine. It never blocks and never
// drops work; items posted after the loop exits are discarded.
func (l *Loop) Post(fn func(*Engine)) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the owner goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func(*Engine) error) error {
	result := make(chan error, 1)
	l.Post(func(e *Engine) { result <- fn(e) })
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Dispatch posts a pointer event tagged with its graph generation. Errors
// are handled (logged and counted) by the engine.
func (l *Loop) Dispatch(generation string, ev interact.Event) {
	l.Post(func(e *Engine) { _ = e.HandleFrom(generation, ev) })
}

// Stop asks the loop to exit. It is safe to call from any goroutine and
// more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed after Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
