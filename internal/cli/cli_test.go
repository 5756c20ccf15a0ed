package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
)

const testRecords = `[
  {"n": {"id": 1, "labels": ["Technology"], "properties": {"name": "Go"}},
   "r": {"id": 10, "type": "HAS", "startNodeId": 1, "endNodeId": 2, "properties": {}},
   "m": {"id": 2, "labels": ["Concept"], "properties": {"name": "Goroutines"}}},
  {"n": {"id": 2, "labels": ["Concept"], "properties": {"name": "Goroutines"}},
   "r": {"id": 11, "type": "USES", "startNodeId": 2, "endNodeId": 3, "properties": {}},
   "m": {"id": 3, "labels": ["Tool"], "properties": {"name": "pprof"}}}
]`

// testEnv writes a records file and a config whose cache lives in a temp
// dir, and returns both paths.
func testEnv(t *testing.T) (records, cfgPath, cacheDir string) {
	t.Helper()
	dir := t.TempDir()
	records = filepath.Join(dir, "graph.json")
	if err := os.WriteFile(records, []byte(testRecords), 0o644); err != nil {
		t.Fatal(err)
	}
	cacheDir = filepath.Join(dir, "cache")
	cfgPath = filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf("[cache]\nenabled = true\ndir = %q\n", cacheDir)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return records, cfgPath, cacheDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(New(io.Discard, LogInfo))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLayoutCommand(t *testing.T) {
	records, cfgPath, _ := testEnv(t)
	out := filepath.Join(t.TempDir(), "out.layout.json")

	if _, err := run(t, "--config", cfgPath, "layout", records, "-o", out, "--width", "400", "--height", "300"); err != nil {
		t.Fatal(err)
	}
	l, err := frame.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Nodes) != 3 || len(l.Edges) != 2 {
		t.Fatalf("layout has %d nodes, %d edges", len(l.Nodes), len(l.Edges))
	}
	for _, n := range l.Nodes {
		vx, vy := l.Transform.Apply(n.X, n.Y)
		if vx < 0 || vx > 400 || vy < 0 || vy > 300 {
			t.Errorf("node %s at (%.1f, %.1f) is outside the view", n.ID, vx, vy)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	records, cfgPath, cacheDir := testEnv(t)
	base := filepath.Join(t.TempDir(), "out", "graph")

	if _, err := run(t, "--config", cfgPath, "render", records, "-f", "svg,dot,txt", "-o", base); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{"svg", "dot", "txt"} {
		data, err := os.ReadFile(base + "." + ext)
		if err != nil {
			t.Fatalf("missing %s output: %v", ext, err)
		}
		if len(data) == 0 {
			t.Errorf("%s output is empty", ext)
		}
	}
	dot, _ := os.ReadFile(base + ".dot")
	if !strings.Contains(string(dot), `"1" -- "2"`) {
		t.Errorf("dot output lacks the Go-Goroutines edge:\n%s", dot)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil || len(entries) == 0 {
		t.Errorf("render should populate the cache at %s", cacheDir)
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	records, cfgPath, _ := testEnv(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"render", records, "-f", "png"}},
		{"stdout with two formats", []string{"render", records, "-f", "svg,dot", "-o", "-"}},
		{"missing source file", []string{"render", filepath.Join(t.TempDir(), "nope.json")}},
		{"unknown mode", []string{"layout", records, "--mode", "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath}, append(tt.args, "--no-cache")...)
			if _, err := run(t, args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNoSource(t *testing.T) {
	_, cfgPath, _ := testEnv(t)
	if _, err := run(t, "--config", cfgPath, "layout"); err == nil {
		t.Error("layout without a source or mongo uri should fail")
	}
}

func TestCacheCommands(t *testing.T) {
	_, cfgPath, cacheDir := testEnv(t)

	out, err := run(t, "--config", cfgPath, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != cacheDir {
		t.Errorf("cache path = %q, want %q", out, cacheDir)
	}

	fc, err := cache.NewFileCache(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := fc.Set(ctx, "records:abc", []byte("[]"), cache.TTLRecords); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfgPath, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := fc.Get(ctx, "records:abc"); ok {
		t.Error("entry survived cache clear")
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		src     string
		formats []string
		want    map[string]string
	}{
		{"single with output", "x.svg", "g.json", []string{"svg"}, map[string]string{"svg": "x.svg"}},
		{"single from source", "", "data/g.json", []string{"svg"}, map[string]string{"svg": "g.svg"}},
		{"multiple strips extension", "out/x.svg", "g.json", []string{"svg", "dot"}, map[string]string{"svg": "out/x.svg", "dot": "out/x.dot"}},
		{"multiple keeps unknown extension", "x.v2", "g.json", []string{"svg", "txt"}, map[string]string{"svg": "x.v2.svg", "txt": "x.v2.txt"}},
		{"mongo source", "", "mongodb://db:27017/kg?collection=rec", []string{"json"}, map[string]string{"json": "kg.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.output, tt.src, tt.formats)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("outputPaths()[%s] = %q, want %q", f, got[f], want)
				}
			}
		})
	}
}

func TestOutputBase(t *testing.T) {
	tests := map[string]string{
		"graph.json":                      "graph",
		"/tmp/data/kg.records.json":       "kg.records",
		"https://example.com/api/graph":   "graph",
		"https://example.com/":            "example",
		"mongodb://localhost/kg":          "kg",
		"":                                "graph",
	}
	for in, want := range tests {
		if got := outputBase(in); got != want {
			t.Errorf("outputBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatNames(t *testing.T) {
	got := formatNames()
	if !slices.IsSorted(got) || !slices.Contains(got, "svg") || !slices.Contains(got, "txt") {
		t.Errorf("formatNames() = %v", got)
	}
}
