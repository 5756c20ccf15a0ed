package viewport

import (
	"math"
	"time"
)

// DefaultDuration is the length of a framing transition.
const DefaultDuration = 750 * time.Millisecond

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float64) float64

// EaseCubicInOut accelerates through the first half and decelerates
// through the second.
func EaseCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Interpolate blends a toward b at progress t. Scale is interpolated
// geometrically so zooming feels uniform; translation is linear.
func Interpolate(a, b Transform, t float64) Transform {
	return Transform{
		Scale:      a.Scale * math.Pow(b.Scale/a.Scale, t),
		TranslateX: a.TranslateX + (b.TranslateX-a.TranslateX)*t,
		TranslateY: a.TranslateY + (b.TranslateY-a.TranslateY)*t,
	}
}

// Transition animates from one transform to another over Duration.
type Transition struct {
	From, To Transform
	Duration time.Duration
	Ease     Easing
}

// NewTransition returns a transition with the default duration and easing.
func NewTransition(from, to Transform) *Transition {
	return &Transition{From: from, To: to, Duration: DefaultDuration, Ease: EaseCubicInOut}
}

// At returns the transform after elapsed time and whether the transition
// has finished. The final transform is exactly To.
func (tr *Transition) At(elapsed time.Duration) (Transform, bool) {
	if tr.Duration <= 0 || elapsed >= tr.Duration {
		return tr.To, true
	}
	if elapsed <= 0 {
		return tr.From, false
	}
	p := float64(elapsed) / float64(tr.Duration)
	if tr.Ease != nil {
		p = tr.Ease(p)
	}
	return Interpolate(tr.From, tr.To, p), false
}
