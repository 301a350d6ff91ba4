package geometry

import (
	"errors"
	"math"
)

// ErrTransformUnready is returned when the rendered page has not been measured
// yet, so no display scale can be derived.
var ErrTransformUnready = errors.New("transform unready: viewport not measured")

// Viewport is the on-screen placement of the rendered page: the top-left of the
// page element (not the window) and its rendered width in CSS pixels.
type Viewport struct {
	OriginX       float64 `json:"originX"`
	OriginY       float64 `json:"originY"`
	RenderedWidth float64 `json:"renderedWidth"`
}

// Origin returns the top-left corner of the rendered page.
func (v Viewport) Origin() Point {
	return Point{X: v.OriginX, Y: v.OriginY}
}

// DisplayScale returns renderedWidthPx / page.Width.
func DisplayScale(renderedWidthPx float64, page Size) (float64, error) {
	if !usable(renderedWidthPx) || !usable(page.Width) {
		return 0, ErrTransformUnready
	}
	return renderedWidthPx / page.Width, nil
}

// PageMatrix maps normalized page space ([0,1]²) onto screen pixels:
// Translate(origin) * Scale(displayScale) * Scale(page.Width, page.Height).
func PageMatrix(origin Point, page Size, displayScale float64) Matrix2D {
	return Translate(origin.X, origin.Y).
		Multiply(Scale(displayScale, displayScale)).
		Multiply(Scale(page.Width, page.Height))
}

// ToDocumentSpace maps a screen-space pointer position to normalized page space.
// The result is not clamped; callers decide how to treat points off the page.
func ToDocumentSpace(pointer, origin Point, page Size, displayScale float64) (Point, error) {
	if !ready(page, displayScale) {
		return Point{}, ErrTransformUnready
	}
	inv, ok := PageMatrix(origin, page, displayScale).Invert()
	if !ok {
		return Point{}, ErrTransformUnready
	}
	return inv.TransformPoint(pointer), nil
}

// ToScreenSpace maps a normalized rectangle to a pixel rectangle.
func ToScreenSpace(r Rect, origin Point, page Size, displayScale float64) (Rect, error) {
	if !ready(page, displayScale) {
		return Rect{}, ErrTransformUnready
	}
	return PageMatrix(origin, page, displayScale).TransformRect(r), nil
}

// ScreenDelta converts a pixel delta into a normalized delta. Translation does
// not apply to deltas, so only scale and page size matter.
func ScreenDelta(dx, dy float64, page Size, displayScale float64) (Point, error) {
	if !ready(page, displayScale) {
		return Point{}, ErrTransformUnready
	}
	return Point{
		X: dx / displayScale / page.Width,
		Y: dy / displayScale / page.Height,
	}, nil
}

// ToUserSpace resolves a normalized rectangle against a page size and returns it
// in PDF user space: points, origin at the bottom-left corner.
func ToUserSpace(r Rect, page Size) Rect {
	return Rect{
		X:      r.X * page.Width,
		Y:      (1 - r.Y - r.Height) * page.Height,
		Width:  r.Width * page.Width,
		Height: r.Height * page.Height,
	}
}

func ready(page Size, displayScale float64) bool {
	return usable(displayScale) && usable(page.Width) && usable(page.Height)
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
