package marker

import (
	"github.com/signdesk/signdesk/internal/geometry"
)

// Handle names a resize hotspot at one corner of a field.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

var handleNames = map[Handle]string{
	HandleTopLeft:     "top-left",
	HandleTopRight:    "top-right",
	HandleBottomLeft:  "bottom-left",
	HandleBottomRight: "bottom-right",
}

// Handles lists the four corners in render order.
var Handles = []Handle{HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return ""
}

// corner returns the position of the handle on r.
func (h Handle) corner(r geometry.Rect) geometry.Point {
	switch h {
	case HandleTopLeft:
		return geometry.Point{X: r.X, Y: r.Y}
	case HandleTopRight:
		return geometry.Point{X: r.Right(), Y: r.Y}
	case HandleBottomLeft:
		return geometry.Point{X: r.X, Y: r.Bottom()}
	default:
		return geometry.Point{X: r.Right(), Y: r.Bottom()}
	}
}

// State is the interaction state: Idle, Dragging or Resizing.
type State interface {
	Kind() string
	isState()
}

// Anchor records where a gesture started: the pointer in normalized page
// space and the field geometry at that moment.
type Anchor struct {
	Pointer geometry.Point `json:"pointer"`
	Origin  geometry.Rect  `json:"origin"`
}

type Idle struct{}

type Dragging struct {
	FieldID string
	Anchor  Anchor
}

type Resizing struct {
	FieldID string
	Handle  Handle
	Anchor  Anchor
}

func (Idle) Kind() string     { return "idle" }
func (Dragging) Kind() string { return "dragging" }
func (Resizing) Kind() string { return "resizing" }

func (Idle) isState()     {}
func (Dragging) isState() {}
func (Resizing) isState() {}

// apply computes the field geometry for a pointer at p. The delta is taken from
// the anchor rather than the previous frame, so repeated moves to the same
// position yield the same rect.
func apply(state State, p geometry.Point, minSize float64) (string, geometry.Rect, bool) {
	switch s := state.(type) {
	case Dragging:
		dx, dy := p.X-s.Anchor.Pointer.X, p.Y-s.Anchor.Pointer.Y
		return s.FieldID, moveRect(s.Anchor.Origin, dx, dy), true
	case Resizing:
		dx, dy := p.X-s.Anchor.Pointer.X, p.Y-s.Anchor.Pointer.Y
		return s.FieldID, resizeRect(s.Anchor.Origin, s.Handle, dx, dy, minSize), true
	default:
		return "", geometry.Rect{}, false
	}
}
