package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/engine"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/observability"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/source"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// Runner executes pipeline stages with caching. It holds no per-run state,
// so one Runner may serve concurrent callers.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// selects the DefaultKeyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs load, layout and render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	res := &Result{}

	start := time.Now()
	g, hit, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Graph = g
	res.Stats.LoadTime = time.Since(start)
	res.Stats.NodeCount = g.NodeCount()
	res.Stats.EdgeCount = g.EdgeCount()
	res.CacheInfo.LoadHit = hit
	if data, err := graph.MarshalGraph(g); err == nil {
		res.GraphHash = cache.Hash(data)
	}
	r.Logger.Info("loaded graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"cached", hit,
		"duration", res.Stats.LoadTime)

	start = time.Now()
	l, err := r.Layout(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Layout = l
	res.Stats.Steps = l.Step
	res.Stats.LayoutTime = time.Since(start)
	r.Logger.Info("computed layout",
		"steps", l.Step,
		"alpha", l.Alpha,
		"scale", l.Transform.Scale,
		"duration", res.Stats.LayoutTime)

	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	res.Artifacts = artifacts
	res.Stats.RenderTime = time.Since(start)
	res.CacheInfo.RenderHit = hit
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", res.Stats.RenderTime)

	return res, nil
}

// LoadWithCacheInfo fetches records for opts.Source and builds the graph.
// Records are cached under the source's key; the graph is rebuilt from
// them on every call so palette changes take effect immediately.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) (*graph.Graph, bool, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, false, err
	}
	src, err := source.Open(opts.Source, opts.Client)
	if err != nil {
		return nil, false, err
	}
	recs, hit, err := r.fetch(ctx, src, opts.Refresh)
	if err != nil {
		return nil, false, err
	}
	g, err := source.Build(recs, opts.Palette)
	if err != nil {
		return nil, hit, err
	}
	return g, hit, nil
}

// Load is LoadWithCacheInfo without the cache flag.
func (r *Runner) Load(ctx context.Context, opts Options) (*graph.Graph, error) {
	g, _, err := r.LoadWithCacheInfo(ctx, opts)
	return g, err
}

func (r *Runner) fetch(ctx context.Context, src source.Source, refresh bool) ([]source.Record, bool, error) {
	key := r.Keyer.RecordsKey(src.Key())
	hooks := observability.Cache()

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if recs, err := source.DecodeRecords(bytes.NewReader(data)); err == nil {
				hooks.OnCacheHit(ctx, cache.KeyType(key))
				return recs, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		hooks.OnCacheMiss(ctx, cache.KeyType(key))
	}

	observability.Pipeline().OnFetchStart(ctx, src.Key())
	start := time.Now()
	recs, err := src.Fetch(ctx)
	observability.Pipeline().OnFetchComplete(ctx, src.Key(), len(recs), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := source.EncodeRecords(&buf, recs); err == nil {
		if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLRecords); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			hooks.OnCacheSet(ctx, cache.KeyType(key), buf.Len())
		}
	}
	return recs, false, nil
}

// Layout runs the simulation for the configured step budget and frames the
// result in the Width×Height view.
func (r *Runner) Layout(ctx context.Context, g *graph.Graph, opts Options) (frame.Layout, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return frame.Layout{}, err
	}
	params, err := opts.SimParams()
	if err != nil {
		return frame.Layout{}, err
	}

	observability.Pipeline().OnLayoutStart(ctx, opts.Mode, g.NodeCount())
	start := time.Now()
	l, err := r.layout(ctx, g, opts, params)
	observability.Pipeline().OnLayoutComplete(ctx, opts.Mode, l.Step, time.Since(start), err)
	return l, err
}

func (r *Runner) layout(ctx context.Context, g *graph.Graph, opts Options, params sim.Params) (frame.Layout, error) {
	e := engine.New(engine.Config{
		Params:   params,
		Attrs:    opts.Attrs,
		Interact: opts.Interact,
		Logger:   opts.Logger,
	})
	defer e.Close()

	if _, err := e.Load(g); err != nil {
		return frame.Layout{}, err
	}
	snap, err := e.RunBatch(ctx)
	if err != nil {
		return frame.Layout{}, err
	}
	t, err := e.Fit(viewport.Size{Width: opts.Width, Height: opts.Height}, false)
	if err != nil {
		return frame.Layout{}, err
	}
	// batch layouts are not live sessions and carry no generation
	return frame.New("", g, e.Attrs(), snap, t, e.Pinned()), nil
}

// RenderWithCacheInfo renders every format in opts.Formats. When all
// formats are cached the cached bytes are returned; otherwise everything
// is rendered and written back.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l frame.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	data, err := l.Marshal()
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(data)
	hooks := observability.Cache()

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, f := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(f))
		b, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, cache.KeyType(key))
			break
		}
		hooks.OnCacheHit(ctx, cache.KeyType(key))
		artifacts[f] = b
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := RenderAll(ctx, l, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	for f, b := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(f))
		if err := r.Cache.Set(ctx, key, b, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, cache.KeyType(key), len(b))
		}
	}
	return rendered, false, nil
}

// Render is RenderWithCacheInfo without the cache flag.
func (r *Runner) Render(ctx context.Context, l frame.Layout, opts Options) (map[string][]byte, error) {
	a, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return a, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
