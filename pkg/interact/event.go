package interact

import (
	"math"
	"strings"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
)

// Kind identifies a pointer gesture.
type Kind string

// Pointer gesture kinds.
const (
	DragStart Kind = "dragStart"
	DragMove  Kind = "dragMove"
	DragEnd   Kind = "dragEnd"
	Zoom      Kind = "zoom"
	Pan       Kind = "pan"
)

// Event is a normalized pointer event. Coordinates are viewport pixels.
//
// Drag events carry NodeID and the pointer position. Zoom carries a
// multiplicative DeltaScale anchored at (X, Y). Pan carries a pixel offset
// in DeltaX/DeltaY.
type Event struct {
	Kind       Kind    `json:"kind"`
	NodeID     string  `json:"nodeId,omitempty"`
	X          float64 `json:"viewportX"`
	Y          float64 `json:"viewportY"`
	DeltaScale float64 `json:"deltaScale,omitempty"`
	DeltaX     float64 `json:"deltaX,omitempty"`
	DeltaY     float64 `json:"deltaY,omitempty"`
}

// ParseKind accepts the canonical names case-insensitively, with or
// without separators ("drag_start", "dragstart", "dragStart").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s))
	for _, k := range []Kind{DragStart, DragMove, DragEnd, Zoom, Pan} {
		if strings.ToLower(string(k)) == norm {
			return k, nil
		}
	}
	return "", fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, ErrUnknownEvent, "kind %q", s)
}

// IsDrag reports whether the event targets a node.
func (e Event) IsDrag() bool {
	return e.Kind == DragStart || e.Kind == DragMove || e.Kind == DragEnd
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
