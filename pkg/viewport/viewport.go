// Package viewport computes camera transforms that frame a layout inside a
// viewport, and animates between transforms.
//
// A [Transform] maps graph space to viewport pixels:
//
//	viewport = graph*Scale + Translate
//
// [Fit] picks the transform that centers a bounding box and scales it to fill
// the viewport minus padding on every side. Degenerate boxes never fail: an
// axis with zero extent stops constraining the scale, and a box with zero
// extent on both axes gets DefaultScale with the box centered.
package viewport

import (
	"math"

	"github.com/matzehuels/forcegraph/pkg/sim"
)

// Defaults for [Options].
const (
	DefaultPadding = 50.0
	DefaultScale   = 1.0
)

// Transform is a uniform scale followed by a translation.
type Transform struct {
	Scale      float64 `json:"scale" bson:"scale"`
	TranslateX float64 `json:"translate_x" bson:"translate_x"`
	TranslateY float64 `json:"translate_y" bson:"translate_y"`
}

// Identity returns the transform that leaves coordinates unchanged.
func Identity() Transform { return Transform{Scale: 1} }

// Apply maps a graph-space point to viewport coordinates.
func (t Transform) Apply(x, y float64) (vx, vy float64) {
	return x*t.Scale + t.TranslateX, y*t.Scale + t.TranslateY
}

// Invert maps a viewport point back to graph space. Scale must be positive.
func (t Transform) Invert(vx, vy float64) (x, y float64) {
	return (vx - t.TranslateX) / t.Scale, (vy - t.TranslateY) / t.Scale
}

// Size is a viewport size in pixels.
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Center returns the viewport's center point.
func (s Size) Center() (x, y float64) { return s.Width / 2, s.Height / 2 }

// Box is an axis-aligned bounding box in graph space.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Center returns the box center.
func (b Box) Center() (x, y float64) { return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2 }

// Bounds returns the bounding box of pos. ok is false when pos is empty.
func Bounds(pos map[string]sim.Point) (b Box, ok bool) {
	for _, p := range pos {
		if !ok {
			b = Box{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
			ok = true
			continue
		}
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b, ok
}

// Options control fitting.
type Options struct {
	Padding      float64 `toml:"padding" json:"padding"`
	DefaultScale float64 `toml:"default_scale" json:"default_scale"`
}

// DefaultOptions returns the standard fit options.
func DefaultOptions() Options {
	return Options{Padding: DefaultPadding, DefaultScale: DefaultScale}
}

// Fit returns the transform that frames b in view:
//
//	scale = min((W - 2p)/width, (H - 2p)/height)
//	translate = viewCenter - scale*boxCenter
//
// Axes with zero extent are left out of the minimum. When no axis
// constrains the scale, or the result is not a positive finite number
// (viewport smaller than the padding), DefaultScale is used.
func Fit(b Box, view Size, opts Options) Transform {
	if opts.DefaultScale <= 0 {
		opts.DefaultScale = DefaultScale
	}
	scale := math.Inf(1)
	if w := b.Width(); w > 0 {
		scale = math.Min(scale, (view.Width-2*opts.Padding)/w)
	}
	if h := b.Height(); h > 0 {
		scale = math.Min(scale, (view.Height-2*opts.Padding)/h)
	}
	if math.IsInf(scale, 0) || math.IsNaN(scale) || scale <= 0 {
		scale = opts.DefaultScale
	}
	gx, gy := b.Center()
	vx, vy := view.Center()
	return Transform{
		Scale:      scale,
		TranslateX: vx - scale*gx,
		TranslateY: vy - scale*gy,
	}
}

// FitPositions fits the bounding box of pos. An empty layout gets
// DefaultScale with the graph origin at the viewport center.
func FitPositions(pos map[string]sim.Point, view Size, opts Options) Transform {
	b, _ := Bounds(pos)
	return Fit(b, view, opts)
}
