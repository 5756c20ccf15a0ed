package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnFetchStart(ctx, "file:records.json")
	p.OnFetchComplete(ctx, "file:records.json", 12, time.Second, nil)
	p.OnLayoutStart(ctx, "batch", 100)
	p.OnLayoutComplete(ctx, "batch", 300, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Simulation hooks
	s := NoopSimulationHooks{}
	s.OnLoad("gen", 10, 9)
	s.OnSettle("gen", 131, time.Second)
	s.OnReheat("gen", "42")
	s.OnEventDropped("dragMove", "stale")

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "records")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "localhost:8080", "/api/findAllNode")
	h.OnResponse(ctx, "GET", "localhost:8080", "/api/findAllNode", 200, time.Second)
	h.OnError(ctx, "GET", "localhost:8080", "/api/findAllNode", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Simulation().(NoopSimulationHooks); !ok {
		t.Error("Simulation() should return NoopSimulationHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customSim := &testSimulationHooks{}
	SetSimulationHooks(customSim)
	if Simulation() != customSim {
		t.Error("SetSimulationHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Simulation().(NoopSimulationHooks); !ok {
		t.Error("Reset() should restore NoopSimulationHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSimulationHooks{}
	SetSimulationHooks(custom)

	// Setting nil should be ignored
	SetSimulationHooks(nil)

	if Simulation() != custom {
		t.Error("SetSimulationHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testSimulationHooks struct{ NoopSimulationHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
