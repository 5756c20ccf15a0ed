// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/forcegraph/pkg/observability"
)

const namespace = "forcegraph"

var (
	_ observability.PipelineHooks   = (*Collector)(nil)
	_ observability.SimulationHooks = (*Collector)(nil)
	_ observability.CacheHooks      = (*Collector)(nil)
	_ observability.HTTPHooks       = (*Collector)(nil)
)

// Collector bundles forcegraph metrics and implements every hook interface
// of pkg/observability.
type Collector struct {
	gatherer prometheus.Gatherer

	Loads         prometheus.Counter
	Nodes         prometheus.Gauge
	Edges         prometheus.Gauge
	SettleSteps   prometheus.Histogram
	SettleSeconds prometheus.Histogram
	Reheats       prometheus.Counter
	Dropped       *prometheus.CounterVec

	StageSeconds *prometheus.HistogramVec
	StageErrors  *prometheus.CounterVec

	CacheOps *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPSeconds  *prometheus.HistogramVec
}

// New registers the collector's metrics against reg, defaulting to the
// global registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}

	var err error
	if c.Loads, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "graph_loads_total",
		Help: "Graphs loaded into the live engine.",
	})); err != nil {
		return nil, err
	}
	if c.Nodes, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "graph_nodes",
		Help: "Nodes in the current graph.",
	})); err != nil {
		return nil, err
	}
	if c.Edges, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "graph_edges",
		Help: "Edges in the current graph.",
	})); err != nil {
		return nil, err
	}
	if c.SettleSteps, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "settle_steps",
		Help:    "Simulation steps taken until rest.",
		Buckets: []float64{1, 10, 50, 100, 150, 200, 300, 500, 1000},
	})); err != nil {
		return nil, err
	}
	if c.SettleSeconds, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "settle_duration_seconds",
		Help:    "Wall time from load or reheat until rest.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})); err != nil {
		return nil, err
	}
	if c.Reheats, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "reheats_total",
		Help: "Simulation re-heats triggered by drags.",
	})); err != nil {
		return nil, err
	}
	if c.Dropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_dropped_total",
		Help: "Pointer events ignored, labeled by kind and reason.",
	}, []string{"kind", "reason"})); err != nil {
		return nil, err
	}
	if c.StageSeconds, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "pipeline_stage_duration_seconds",
		Help:    "Batch pipeline stage latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if c.StageErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "pipeline_stage_errors_total",
		Help: "Batch pipeline stage failures.",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if c.CacheOps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_operations_total",
		Help: "Cache operations, labeled by result and key type.",
	}, []string{"result", "key_type"})); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_client_requests_total",
		Help: "Outgoing HTTP requests, labeled by host and status code.",
	}, []string{"host", "code"})); err != nil {
		return nil, err
	}
	if c.HTTPSeconds, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_client_duration_seconds",
		Help:    "Outgoing HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"host"})); err != nil {
		return nil, err
	}
	return c, nil
}

// Install registers c as the global hooks of every category.
func (c *Collector) Install() {
	observability.SetPipelineHooks(c)
	observability.SetSimulationHooks(c)
	observability.SetCacheHooks(c)
	observability.SetHTTPHooks(c)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// =============================================================================
// Simulation
// =============================================================================

func (c *Collector) OnLoad(_ string, nodes, edges int) {
	c.Loads.Inc()
	c.Nodes.Set(float64(nodes))
	c.Edges.Set(float64(edges))
}

func (c *Collector) OnSettle(_ string, steps int, d time.Duration) {
	c.SettleSteps.Observe(float64(steps))
	c.SettleSeconds.Observe(d.Seconds())
}

func (c *Collector) OnReheat(string, string) { c.Reheats.Inc() }

func (c *Collector) OnEventDropped(kind, reason string) {
	c.Dropped.WithLabelValues(kind, reason).Inc()
}

// =============================================================================
// Pipeline
// =============================================================================

func (c *Collector) OnFetchStart(context.Context, string) {}

func (c *Collector) OnFetchComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	c.stage("fetch", d, err)
}

func (c *Collector) OnLayoutStart(context.Context, string, int) {}

func (c *Collector) OnLayoutComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	c.stage("layout", d, err)
}

func (c *Collector) OnRenderStart(context.Context, []string) {}

func (c *Collector) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	c.stage("render", d, err)
}

func (c *Collector) stage(name string, d time.Duration, err error) {
	c.StageSeconds.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		c.StageErrors.WithLabelValues(name).Inc()
	}
}

// =============================================================================
// Cache
// =============================================================================

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues("hit", keyType).Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues("miss", keyType).Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, _ int) {
	c.CacheOps.WithLabelValues("set", keyType).Inc()
}

// =============================================================================
// HTTP client
// =============================================================================

func (c *Collector) OnRequest(context.Context, string, string, string) {}

func (c *Collector) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	c.HTTPSeconds.WithLabelValues(host).Observe(d.Seconds())
}

func (c *Collector) OnError(_ context.Context, _, host, _ string, _ error) {
	c.HTTPRequests.WithLabelValues(host, "error").Inc()
}

// register adds col to reg, returning the already registered collector of
// the same type when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %T already registered with incompatible type", col)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
