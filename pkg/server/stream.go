package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/matzehuels/forcegraph/pkg/engine"
	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// keepAlive is the interval between SSE comment lines on an idle stream.
const keepAlive = 15 * time.Second

// SSE event names.
const (
	EventLayout = "layout" // full frame, sent first
	EventStep   = "step"   // positions after a step
	EventCamera = "camera" // camera transform
	EventEnd    = "end"    // graph replaced or server stopping
)

// StepEvent is the payload of a step event.
type StepEvent struct {
	Generation string `json:"generation"`
	sim.Snapshot
}

// CameraEvent is the payload of a camera event.
type CameraEvent struct {
	Generation string `json:"generation"`
	viewport.Transform
}

// streamListener keeps only the latest step and camera so a slow client
// skips frames instead of blocking the engine.
type streamListener struct {
	mu     sync.Mutex
	step   *StepEvent
	camera *CameraEvent
	ready  chan struct{}
}

func newStreamListener() *streamListener {
	return &streamListener{ready: make(chan struct{}, 1)}
}

func (l *streamListener) OnStep(gen string, snap sim.Snapshot) {
	l.mu.Lock()
	l.step = &StepEvent{Generation: gen, Snapshot: snap}
	l.mu.Unlock()
	l.signal()
}

func (l *streamListener) OnCamera(gen string, t viewport.Transform) {
	l.mu.Lock()
	l.camera = &CameraEvent{Generation: gen, Transform: t}
	l.mu.Unlock()
	l.signal()
}

func (l *streamListener) OnDetach() {}

func (l *streamListener) signal() {
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *streamListener) take() (*StepEvent, *CameraEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	step, cam := l.step, l.camera
	l.step, l.camera = nil, nil
	return step, cam
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, fgerrors.New(fgerrors.ErrCodeUnsupported, "streaming not supported"))
		return
	}

	lst := newStreamListener()
	var (
		sub     *engine.Subscription
		initial frame.Layout
	)
	err := s.loop.Do(r.Context(), func(e *engine.Engine) error {
		if !e.Loaded() {
			return fgerrors.Wrap(fgerrors.ErrCodeNotFound, engine.ErrNoGraph, "stream")
		}
		initial = layoutOf(e)
		sub = e.Subscribe(lst)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.loop.Post(func(*engine.Engine) { sub.Cancel() })

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, EventLayout, initial); err != nil {
		return
	}
	flusher.Flush()
	s.log.Debug("stream opened", "generation", sub.Generation())

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			_ = writeEvent(w, EventEnd, map[string]string{"generation": sub.Generation()})
			flusher.Flush()
			s.log.Debug("stream ended", "generation", sub.Generation())
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-lst.ready:
			step, cam := lst.take()
			if cam != nil {
				if err := writeEvent(w, EventCamera, cam); err != nil {
					return
				}
			}
			if step != nil {
				if err := writeEvent(w, EventStep, step); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
