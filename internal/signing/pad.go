package signing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/vector"

	"github.com/signdesk/signdesk/internal/geometry"
)

const dataURIPrefix = "data:image/png;base64,"

// ErrBadSignatureData is returned when a signature payload is not a PNG data URI.
var ErrBadSignatureData = errors.New("signature data is not a png data uri")

// DefaultInk is a ballpoint blue.
var DefaultInk = color.RGBA{R: 0x1a, G: 0x23, B: 0x7e, A: 0xff}

// Pad records pen strokes drawn on a fixed-size surface in pixels.
type Pad struct {
	width, height int
	lineWidth     float64
	ink           color.RGBA
	strokes       [][]geometry.Point
	drawing       bool
}

func NewPad(width, height int) *Pad {
	return &Pad{
		width:     max(width, 1),
		height:    max(height, 1),
		lineWidth: 2.5,
		ink:       DefaultInk,
	}
}

// SetLineWidth sets the pen diameter in pixels. Non-positive values are ignored.
func (p *Pad) SetLineWidth(w float64) {
	if w > 0 {
		p.lineWidth = w
	}
}

func (p *Pad) SetInk(c color.RGBA) { p.ink = c }

// Begin starts a new stroke at pt.
func (p *Pad) Begin(pt geometry.Point) {
	p.strokes = append(p.strokes, []geometry.Point{p.clip(pt)})
	p.drawing = true
}

// Extend adds pt to the current stroke. Points outside a stroke are dropped.
func (p *Pad) Extend(pt geometry.Point) {
	if !p.drawing {
		return
	}
	last := len(p.strokes) - 1
	p.strokes[last] = append(p.strokes[last], p.clip(pt))
}

// End finishes the current stroke.
func (p *Pad) End() { p.drawing = false }

// Clear wipes the pad.
func (p *Pad) Clear() {
	p.strokes = nil
	p.drawing = false
}

// IsEmpty reports whether nothing has been drawn.
func (p *Pad) IsEmpty() bool { return len(p.strokes) == 0 }

func (p *Pad) StrokeCount() int { return len(p.strokes) }

func (p *Pad) Size() (int, int) { return p.width, p.height }

// Image rasterizes the strokes onto a transparent canvas.
func (p *Pad) Image() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	src := image.NewUniform(p.ink)
	z := vector.NewRasterizer(p.width, p.height)
	r := p.lineWidth / 2

	fill := func(pts ...geometry.Point) {
		z.Reset(p.width, p.height)
		z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		for _, pt := range pts[1:] {
			z.LineTo(float32(pt.X), float32(pt.Y))
		}
		z.ClosePath()
		z.Draw(dst, dst.Bounds(), src, image.Point{})
	}

	for _, stroke := range p.strokes {
		for i, pt := range stroke {
			fill(dot(pt, r)...)
			if i == 0 {
				continue
			}
			if quad, ok := segment(stroke[i-1], pt, r); ok {
				fill(quad...)
			}
		}
	}
	return dst
}

// PNG encodes the rasterized signature.
func (p *Pad) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Image()); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI returns the signature as a base64 PNG data URI.
func (p *Pad) DataURI() (string, error) {
	data, err := p.PNG()
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

func (p *Pad) clip(pt geometry.Point) geometry.Point {
	return geometry.Point{
		X: geometry.Clamp(pt.X, 0, float64(p.width)),
		Y: geometry.Clamp(pt.Y, 0, float64(p.height)),
	}
}

// DecodeDataURI parses a PNG data URI produced by a Pad.
func DecodeDataURI(uri string) (image.Image, error) {
	payload, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return nil, ErrBadSignatureData
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignatureData, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignatureData, err)
	}
	return img, nil
}

// InkBounds returns the bounds of the non-transparent pixels of img, or an
// empty rectangle when img has no ink.
func InkBounds(img image.Image) image.Rectangle {
	var ink image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
				continue
			}
			ink = ink.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return ink
}

// Crop copies the ink area of img into a new image.
func Crop(img image.Image) (*image.RGBA, bool) {
	ink := InkBounds(img)
	if ink.Empty() {
		return nil, false
	}
	out := image.NewRGBA(image.Rect(0, 0, ink.Dx(), ink.Dy()))
	draw.Draw(out, out.Bounds(), img, ink.Min, draw.Src)
	return out, true
}

// segment returns the quad covering the line from a to b with half-width r.
func segment(a, b geometry.Point, r float64) ([]geometry.Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil, false
	}
	nx, ny := -dy/l*r, dx/l*r
	return []geometry.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, true
}

// dot approximates a round pen tip with an octagon.
func dot(c geometry.Point, r float64) []geometry.Point {
	pts := make([]geometry.Point, 8)
	for i := range pts {
		a := float64(i) * math.Pi / 4
		pts[i] = geometry.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}
