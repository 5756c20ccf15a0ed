// Package pipeline runs the batch layout flow shared by the CLI and the
// HTTP server.
//
// The pipeline has three stages:
//
//  1. Load: fetch records from a [source.Source] and build a graph
//  2. Layout: run a fixed-budget simulation and fit the result to a view
//  3. Render: produce artifacts (JSON, DOT, SVG, text) from the layout
//
// Loaded records and rendered artifacts are cached through a [Runner];
// layouts are recomputed every time because they are cheap relative to
// fetching and Graphviz rendering.
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "data/records.json",
//	    Formats: []string{"svg"},
//	})
//	svg := res.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/attrs"
	"github.com/matzehuels/forcegraph/pkg/cache"
	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/httputil"
	"github.com/matzehuels/forcegraph/pkg/interact"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/sim"
	"github.com/matzehuels/forcegraph/pkg/source"
)

// Frame defaults.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
)

// Output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatText = "txt"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatText: true,
}

// Options configures a pipeline run. It supports JSON for API requests.
type Options struct {
	// Load options
	Source  string         `json:"source,omitempty"`
	Refresh bool           `json:"refresh,omitempty"`
	Palette source.Palette `json:"palette,omitempty"`

	// Layout options
	Mode   string       `json:"mode,omitempty"`   // batch or streaming preset
	Params *sim.Params  `json:"params,omitempty"` // overrides the preset
	Attrs  attrs.Config `json:"-"`
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`

	// Render options
	Formats    []string `json:"formats,omitempty"`
	EdgeLabels bool     `json:"edge_labels,omitempty"`
	Directed   bool     `json:"directed,omitempty"`

	// Runtime options (not serialized)
	Interact interact.Config  `json:"-"`
	Logger   *log.Logger      `json:"-"`
	Client   *httputil.Client `json:"-"`
}

// Result holds the outputs of a pipeline run.
type Result struct {
	Graph     *graph.Graph
	GraphHash string
	Layout    frame.Layout
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timing and size information.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	Steps      int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	LoadHit   bool
	RenderHit bool // all artifacts came from cache
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fgerrors.New(fgerrors.ErrCodeUnsupported,
			"invalid format: %q (must be one of: %s)", format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// ParseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// ValidateForLoad checks the fields Load needs.
func (o *Options) ValidateForLoad() error {
	if o.Source == "" {
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "source is required")
	}
	o.setCommonDefaults()
	return nil
}

// ValidateForLayout applies layout defaults and checks the simulation
// parameters.
func (o *Options) ValidateForLayout() error {
	o.setCommonDefaults()
	if o.Mode == "" {
		o.Mode = sim.ModeBatch
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	p, err := o.SimParams()
	if err != nil {
		return err
	}
	return p.Validate()
}

// ValidateForRender applies render defaults and checks formats.
func (o *Options) ValidateForRender() error {
	o.setCommonDefaults()
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	return ValidateFormats(o.Formats)
}

// Validate checks and defaults every stage.
func (o *Options) Validate() error {
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

func (o *Options) setCommonDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Interact == (interact.Config{}) {
		o.Interact = interact.DefaultConfig()
	}
}

// SimParams returns the explicit parameters or the preset for Mode.
func (o *Options) SimParams() (sim.Params, error) {
	if o.Params != nil {
		return *o.Params, nil
	}
	mode := o.Mode
	if mode == "" {
		mode = sim.ModeBatch
	}
	return sim.Preset(mode)
}

// ArtifactKeyOpts returns cache key options for one format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: fmt.Sprintf("%s/labels=%t/directed=%t", format, o.EdgeLabels, o.Directed),
		Width:  o.Width,
		Height: o.Height,
	}
}
