package prom

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestSimulationHooksRecordMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.OnLoad("gen", 12, 11)
	c.OnLoad("gen2", 3, 2)
	c.OnSettle("gen2", 131, 2*time.Second)
	c.OnReheat("gen2", "a")
	c.OnEventDropped("dragMove", "unknown_node")

	if got := testutil.ToFloat64(c.Loads); got != 2 {
		t.Errorf("graph_loads_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Nodes); got != 3 {
		t.Errorf("graph_nodes = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.Reheats); got != 1 {
		t.Errorf("reheats_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Dropped.WithLabelValues("dragMove", "unknown_node")); got != 1 {
		t.Errorf("events_dropped_total = %v, want 1", got)
	}
	if n := histogramSampleCount(t, reg, "forcegraph_settle_steps", nil); n != 1 {
		t.Errorf("settle_steps sample_count = %d, want 1", n)
	}
}

func TestPipelineAndCacheHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	c.OnLayoutComplete(ctx, "batch", 300, time.Millisecond, nil)
	c.OnRenderComplete(ctx, []string{"svg"}, time.Millisecond, errors.New("boom"))
	c.OnCacheHit(ctx, "records")
	c.OnCacheMiss(ctx, "records")
	c.OnResponse(ctx, "GET", "api", "/x", 503, time.Millisecond)
	c.OnError(ctx, "GET", "api", "/x", errors.New("reset"))

	if got := testutil.ToFloat64(c.StageErrors.WithLabelValues("render")); got != 1 {
		t.Errorf("render errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.StageErrors.WithLabelValues("layout")); got != 0 {
		t.Errorf("layout errors = %v, want 0", got)
	}
	if n := histogramSampleCount(t, reg, "forcegraph_pipeline_stage_duration_seconds", map[string]string{"stage": "layout"}); n != 1 {
		t.Errorf("layout stage sample_count = %d, want 1", n)
	}
	if got := testutil.ToFloat64(c.CacheOps.WithLabelValues("hit", "records")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("api", "503")); got != 1 {
		t.Errorf("http 503 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("api", "error")); got != 1 {
		t.Errorf("http errors = %v, want 1", got)
	}
}

func TestNewTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	first.OnReheat("g", "n")
	if got := testutil.ToFloat64(second.Reheats); got != 1 {
		t.Errorf("second collector does not share counters: %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.OnLoad("gen", 4, 5)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{"forcegraph_graph_loads_total", "forcegraph_graph_nodes 4", "forcegraph_graph_edges 5"} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
