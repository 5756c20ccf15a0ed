// Package server exposes one live layout session over HTTP.
//
// The session is an [engine.Loop]; handlers never touch the engine
// directly but post work to the loop's mailbox and wait for the result.
// Clients follow the layout through a Server-Sent Events stream that ends
// whenever a new graph replaces the current one.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/forcegraph/pkg/engine"
	"github.com/matzehuels/forcegraph/pkg/source"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// Defaults for Options.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 32 << 20
)

// Options configures a Server.
type Options struct {
	Logger      *log.Logger
	Palette     source.Palette
	View        viewport.Size // applied to every newly loaded graph
	Timeout     time.Duration // for non-streaming routes
	MaxBodySize int64
	Metrics     http.Handler // mounted at /metrics when set
}

// Server serves the HTTP API for one engine loop.
type Server struct {
	loop   *engine.Loop
	opts   Options
	log    *log.Logger
	router chi.Router
}

// New builds the router. The caller runs loop.
func New(loop *engine.Loop, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	s := &Server{loop: loop, opts: opts, log: opts.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.Timeout))
			r.Post("/graph", s.handleLoad)
			r.Get("/layout", s.handleLayout)
			r.Post("/events", s.handleEvent)
			r.Post("/viewport", s.handleViewport)
			r.Post("/reset", s.handleReset)
			r.Get("/render.svg", s.handleRenderSVG)
		})
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Open streams are ended by stopping the loop.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.loop.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
