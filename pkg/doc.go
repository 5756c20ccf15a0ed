// Package pkg provides the core libraries for forcegraph.
//
// # Overview
//
// Forcegraph turns property-graph records (nodes, relationships and their
// labels) into force-directed layouts. The same simulation drives batch
// rendering and live, interactive sessions. The pkg directory is organized
// into four areas:
//
//  1. Model: [graph], [attrs], [source]
//  2. Layout: [sim], [viewport], [interact], [engine]
//  3. Output: [render/frame], [render/nodelink], [render/term]
//  4. Infrastructure: [pipeline], [cache], [config], [server],
//     [observability], [httputil], [errors]
//
// # Architecture
//
// The typical data flow:
//
//	records (file, HTTP, MongoDB)
//	         ↓
//	    [source] package (fetch + build graph, category colors)
//	         ↓
//	    [attrs] package (degree, node size, text color)
//	         ↓
//	    [engine] package (simulation + camera, single owner)
//	         ↓
//	    [render/frame] package (positioned snapshot)
//	         ↓
//	    JSON / DOT / SVG / terminal output
//
// # Quick Start
//
// Lay out a records file and render it to SVG:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "graph.json",
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("graph.svg", res.Artifacts[pipeline.FormatSVG], 0o644)
//
// Drive a live session directly:
//
//	e := engine.New(engine.DefaultConfig())
//	e.Load(g)
//	e.Fit(viewport.Size{Width: 800, Height: 600}, false)
//	for e.Tick(16 * time.Millisecond) {
//	    // draw e.Snapshot() through e.Camera()
//	}
//
// # Main Packages
//
// [sim] - d3-style velocity Verlet simulation with link, many-body, center
// and axis forces, alpha cooling, pinning and reheat.
//
// [viewport] - Camera transforms, bounding boxes, fit-to-view and eased
// camera transitions.
//
// [interact] - Pointer events (drag, zoom, pan) mapped onto the simulation
// and camera, with scale clamping.
//
// [engine] - The session owner: load with generations, listeners, tick,
// batch runs, and a mailbox loop for concurrent callers.
//
// [pipeline] - Load, layout and render with record and artifact caching.
// Used by the CLI and the HTTP server.
//
// [server] - HTTP API and Server-Sent Events stream for one live session.
//
// # Testing
//
//	go test ./...                               # All tests
//	FORCEGRAPH_TEST_REDIS=localhost:6379 go test ./pkg/cache/  # With Redis
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/graph
// [attrs]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/attrs
// [source]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/source
// [sim]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/sim
// [viewport]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/viewport
// [interact]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/interact
// [engine]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/engine
// [render/frame]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/render/frame
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/render/nodelink
// [render/term]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/render/term
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/observability
// [httputil]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/errors
package pkg
