package sim

import (
	"math"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
)

// Mode names accepted by [Preset].
const (
	ModeBatch     = "batch"
	ModeStreaming = "streaming"
)

// Defaults shared by both presets.
const (
	DefaultAlphaMin       = 0.05
	DefaultVelocityDecay  = 0.4
	DefaultReheatAlpha    = 0.3
	DefaultLinkDistance   = 100.0
	DefaultDistanceMin    = 1.0
	DefaultBatchSteps     = 300
	DefaultAxisBias       = 0.01
	DefaultBatchRepulsion = -300.0
	DefaultLiveRepulsion  = -500.0
)

// DefaultAlphaDecay brings alpha from 1 to 0.001 in 300 steps.
var DefaultAlphaDecay = 1 - math.Pow(0.001, 1.0/300)

// Params configures a Simulation. Zero values are meaningful (a zero
// Repulsion disables repulsion), so start from [Batch] or [Streaming]
// rather than from a zero struct.
type Params struct {
	Repulsion      float64 `toml:"repulsion" json:"repulsion"`             // Many-body strength, negative repels
	DistanceMin    float64 `toml:"distance_min" json:"distance_min"`       // Clamp for coincident nodes
	LinkDistance   float64 `toml:"link_distance" json:"link_distance"`     // Spring rest length
	LinkIterations int     `toml:"link_iterations" json:"link_iterations"` // Spring passes per step
	AxisBias       float64 `toml:"axis_bias" json:"axis_bias"`             // Per-degree axis pull, 0 disables
	AlphaMin       float64 `toml:"alpha_min" json:"alpha_min"`
	AlphaDecay     float64 `toml:"alpha_decay" json:"alpha_decay"`
	VelocityDecay  float64 `toml:"velocity_decay" json:"velocity_decay"`
	ReheatAlpha    float64 `toml:"reheat_alpha" json:"reheat_alpha"`
	Steps          int     `toml:"steps" json:"steps"` // Batch step budget
	Seed           uint64  `toml:"seed" json:"seed"`   // Jitter seed
}

func base() Params {
	return Params{
		DistanceMin:    DefaultDistanceMin,
		LinkDistance:   DefaultLinkDistance,
		LinkIterations: 1,
		AlphaMin:       DefaultAlphaMin,
		AlphaDecay:     DefaultAlphaDecay,
		VelocityDecay:  DefaultVelocityDecay,
		ReheatAlpha:    DefaultReheatAlpha,
		Steps:          DefaultBatchSteps,
	}
}

// Batch returns the preset for precomputed layouts: moderate repulsion and
// a degree-weighted axis pull that keeps hubs near the middle.
func Batch() Params {
	p := base()
	p.Repulsion = DefaultBatchRepulsion
	p.AxisBias = DefaultAxisBias
	return p
}

// Streaming returns the preset for live layouts: stronger repulsion and no
// axis pull, so dragged nodes move their neighbors freely.
func Streaming() Params {
	p := base()
	p.Repulsion = DefaultLiveRepulsion
	return p
}

// Preset returns the named preset.
func Preset(mode string) (Params, error) {
	switch mode {
	case ModeBatch, "":
		return Batch(), nil
	case ModeStreaming:
		return Streaming(), nil
	}
	return Params{}, fgerrors.New(fgerrors.ErrCodeInvalidInput, "unknown simulation mode %q", mode)
}

// Validate rejects parameters that would never converge or that produce
// undefined arithmetic.
func (p Params) Validate() error {
	switch {
	case !(p.AlphaMin > 0 && p.AlphaMin < 1):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "alpha_min must be in (0, 1), got %v", p.AlphaMin)
	case !(p.AlphaDecay > 0 && p.AlphaDecay < 1):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "alpha_decay must be in (0, 1), got %v", p.AlphaDecay)
	case !(p.VelocityDecay >= 0 && p.VelocityDecay <= 1):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "velocity_decay must be in [0, 1], got %v", p.VelocityDecay)
	case !(p.ReheatAlpha > 0 && p.ReheatAlpha <= 1):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "reheat_alpha must be in (0, 1], got %v", p.ReheatAlpha)
	case !(p.DistanceMin > 0):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "distance_min must be positive, got %v", p.DistanceMin)
	case !(p.LinkDistance >= 0):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "link_distance must not be negative, got %v", p.LinkDistance)
	case p.LinkIterations < 1:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "link_iterations must be at least 1, got %d", p.LinkIterations)
	case p.Steps < 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "steps must not be negative, got %d", p.Steps)
	case math.IsNaN(p.Repulsion) || math.IsInf(p.Repulsion, 0):
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "repulsion must be finite")
	case math.IsNaN(p.AxisBias) || p.AxisBias < 0:
		return fgerrors.New(fgerrors.ErrCodeInvalidInput, "axis_bias must not be negative, got %v", p.AxisBias)
	}
	return nil
}
