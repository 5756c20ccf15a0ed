// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about pipeline execution, simulations, cache operations
// and outgoing HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation lives in the prom subpackage so that
// libraries importing this package stay free of metrics dependencies.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetSimulationHooks(m)
//	    observability.SetCacheHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLayoutStart(ctx, mode, nodeCount)
//	// ... run the simulation ...
//	observability.Pipeline().OnLayoutComplete(ctx, mode, steps, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the batch pipeline.
type PipelineHooks interface {
	// Source events
	OnFetchStart(ctx context.Context, source string)
	OnFetchComplete(ctx context.Context, source string, records int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, mode string, nodeCount int)
	OnLayoutComplete(ctx context.Context, mode string, steps int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Simulation Hooks
// =============================================================================

// SimulationHooks receives events from a live engine. Calls happen on the
// engine's owner goroutine and must not block.
type SimulationHooks interface {
	// OnLoad records a graph replacing the previous one.
	OnLoad(generation string, nodes, edges int)

	// OnSettle records a simulation reaching rest.
	OnSettle(generation string, steps int, duration time.Duration)

	// OnReheat records a drag re-heating the simulation.
	OnReheat(generation, nodeID string)

	// OnEventDropped records a pointer event that was ignored.
	OnEventDropped(kind, reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnFetchStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnFetchComplete(context.Context, string, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                             {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)    {}

// NoopSimulationHooks is a no-op implementation of SimulationHooks.
type NoopSimulationHooks struct{}

func (NoopSimulationHooks) OnLoad(string, int, int)             {}
func (NoopSimulationHooks) OnSettle(string, int, time.Duration) {}
func (NoopSimulationHooks) OnReheat(string, string)             {}
func (NoopSimulationHooks) OnEventDropped(string, string)       {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks   PipelineHooks   = NoopPipelineHooks{}
	simulationHooks SimulationHooks = NoopSimulationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetSimulationHooks registers custom simulation hooks.
func SetSimulationHooks(h SimulationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		simulationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Simulation returns the registered simulation hooks.
func Simulation() SimulationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return simulationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	simulationHooks = NoopSimulationHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
