package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matzehuels/forcegraph/pkg/engine"
	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/interact"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/render/nodelink"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/source"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// LoadResponse is returned by POST /api/graph.
type LoadResponse struct {
	Generation string `json:"generation"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
}

// EventRequest is the body of POST /api/events. Generation is the graph
// the client saw when producing the event; stale events are rejected.
type EventRequest struct {
	Generation string `json:"generation"`
	interact.Event
}

// ViewportRequest is the body of POST /api/viewport.
type ViewportRequest struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Animate bool    `json:"animate"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	recs, err := source.DecodeRecords(http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize))
	if err != nil {
		s.writeError(w, fgerrors.Wrap(fgerrors.ErrCodeInvalidFormat, err, "request body"))
		return
	}
	g, err := source.Build(recs, s.opts.Palette)
	if err != nil {
		s.writeError(w, fgerrors.Wrap(fgerrors.ErrCodeInvalidGraph, err, "build graph"))
		return
	}

	var resp LoadResponse
	err = s.loop.Do(r.Context(), func(e *engine.Engine) error {
		gen, err := e.Load(g)
		if err != nil {
			return err
		}
		if s.opts.View.Width > 0 && s.opts.View.Height > 0 {
			e.SetView(s.opts.View)
		}
		resp = LoadResponse{Generation: gen, Nodes: g.NodeCount(), Edges: g.EdgeCount()}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	l, err := s.currentLayout(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) currentLayout(ctx context.Context) (frame.Layout, error) {
	var l frame.Layout
	err := s.loop.Do(ctx, func(e *engine.Engine) error {
		if !e.Loaded() {
			return fgerrors.Wrap(fgerrors.ErrCodeNotFound, engine.ErrNoGraph, "layout")
		}
		l = layoutOf(e)
		return nil
	})
	return l, err
}

func layoutOf(e *engine.Engine) frame.Layout {
	return frame.New(e.Generation(), e.Graph(), e.Attrs(), e.Snapshot(), e.Camera(), e.Pinned())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(w, r, &req, s.opts.MaxBodySize); err != nil {
		s.writeError(w, err)
		return
	}
	err := s.loop.Do(r.Context(), func(e *engine.Engine) error {
		return e.HandleFrom(req.Generation, req.Event)
	})
	if err != nil && !ignoredEvent(err) {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ignoredEvent reports whether err is an interaction the engine dropped
// without changing state. The engine has already logged and counted it.
func ignoredEvent(err error) bool {
	return errors.Is(err, sim.ErrUnknownNode) ||
		errors.Is(err, interact.ErrNotDragging) ||
		errors.Is(err, interact.ErrUnknownEvent)
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if err := decodeJSON(w, r, &req, s.opts.MaxBodySize); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		s.writeError(w, fgerrors.New(fgerrors.ErrCodeInvalidInput, "width and height must be positive"))
		return
	}
	var t viewport.Transform
	err := s.loop.Do(r.Context(), func(e *engine.Engine) error {
		var err error
		t, err = e.Fit(viewport.Size{Width: req.Width, Height: req.Height}, req.Animate)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var t viewport.Transform
	err := s.loop.Do(r.Context(), func(e *engine.Engine) error {
		e.Reset()
		t = e.Camera()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	l, err := s.currentLayout(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	edgeLabels := r.URL.Query().Get("labels") == "true"
	svg, err := nodelink.RenderSVG(r.Context(), nodelink.ToDOT(l, nodelink.Options{EdgeLabels: edgeLabels}))
	if err != nil {
		s.writeError(w, fgerrors.Wrap(fgerrors.ErrCodeInternal, err, "render svg"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		return fgerrors.Wrap(fgerrors.ErrCodeInvalidFormat, err, "request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string        `json:"error"`
	Code  fgerrors.Code `json:"code,omitempty"`
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrStaleGeneration):
		return http.StatusConflict
	case errors.Is(err, engine.ErrLoopStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch fgerrors.GetCode(err) {
	case fgerrors.ErrCodeNotFound, fgerrors.ErrCodeSourceNotFound, fgerrors.ErrCodeUnknownNode:
		return http.StatusNotFound
	case fgerrors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	}
	if fgerrors.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= 500 {
		s.log.Error("request failed", "err", err)
	} else {
		s.log.Debug("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: fgerrors.UserMessage(err), Code: fgerrors.GetCode(err)})
}
