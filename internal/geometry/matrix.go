package geometry

// Matrix2D is an affine transform stored column-major as [a b c d e f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
//
// Page projection only ever composes translations and scales, but the type
// stays general.
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Multiply returns m * o, which applies o first.
func (m Matrix2D) Multiply(o Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*o[0] + m[2]*o[1],
		m[1]*o[0] + m[3]*o[1],
		m[0]*o[2] + m[2]*o[3],
		m[1]*o[2] + m[3]*o[3],
		m[0]*o[4] + m[2]*o[5] + m[4],
		m[1]*o[4] + m[3]*o[5] + m[5],
	}
}

func (m Matrix2D) TransformPoint(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// TransformRect maps r and returns the axis-aligned bounds of the result.
func (m Matrix2D) TransformRect(r Rect) Rect {
	corners := [4]Point{
		m.TransformPoint(Point{r.X, r.Y}),
		m.TransformPoint(Point{r.Right(), r.Y}),
		m.TransformPoint(Point{r.Right(), r.Bottom()}),
		m.TransformPoint(Point{r.X, r.Bottom()}),
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		lo.X, lo.Y = min(lo.X, c.X), min(lo.Y, c.Y)
		hi.X, hi.Y = max(hi.X, c.X), max(hi.Y, c.Y)
	}
	return Rect{X: lo.X, Y: lo.Y, Width: hi.X - lo.X, Height: hi.Y - lo.Y}
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of m. A singular matrix yields Identity and false.
func (m Matrix2D) Invert() (Matrix2D, bool) {
	det := m.Determinant()
	if det == 0 {
		return Identity(), false
	}
	k := 1 / det
	return Matrix2D{
		m[3] * k,
		-m[1] * k,
		-m[2] * k,
		m[0] * k,
		(m[2]*m[5] - m[3]*m[4]) * k,
		(m[1]*m[4] - m[0]*m[5]) * k,
	}, true
}
