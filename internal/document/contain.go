package document

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/signdesk/signdesk/internal/geometry"
)

// ErrInvalidField is wrapped by every ValidationError.
var ErrInvalidField = errors.New("invalid signature field")

// ValidationError lists every invariant a field violates.
type ValidationError struct {
	FieldID  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.FieldID, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidField }

// Contain clamps a normalized rect so that it lies within [0,1]² with each
// side at least minSize. Size is only reduced when it exceeds the page.
func Contain(r geometry.Rect, minSize float64) geometry.Rect {
	r.Width = geometry.Clamp(r.Width, minSize, 1)
	r.Height = geometry.Clamp(r.Height, minSize, 1)
	r.X = geometry.Clamp(r.X, 0, 1-r.Width)
	r.Y = geometry.Clamp(r.Y, 0, 1-r.Height)
	return r
}

// Normalize repairs a field received from the backend. Geometry is clamped into
// the page; fields with a page outside [1, pageCount] or non-finite geometry
// cannot be repaired and report false.
func Normalize(f SignatureField, pageCount int, minSize float64) (SignatureField, bool) {
	if f.ID == "" || f.Page < 1 || f.Page > pageCount {
		return f, false
	}
	if !finite(f.X, f.Y, f.W, f.H) {
		return f, false
	}
	return f.WithRect(Contain(f.Rect(), minSize)), true
}

// Validate checks a field against the data model invariants without repairing it.
func Validate(f SignatureField, pageCount int, minSize float64) error {
	const tolerance = 1e-9
	var problems []string

	if f.ID == "" {
		problems = append(problems, "id is required")
	}
	if f.Page < 1 || f.Page > pageCount {
		problems = append(problems, fmt.Sprintf("page %d outside 1..%d", f.Page, pageCount))
	}
	if !finite(f.X, f.Y, f.W, f.H) {
		problems = append(problems, "geometry must be finite")
	}
	if f.X < 0 || f.Y < 0 {
		problems = append(problems, "origin must be non-negative")
	}
	if f.W < minSize-tolerance || f.H < minSize-tolerance {
		problems = append(problems, fmt.Sprintf("width and height must be at least %.2f", minSize))
	}
	if f.X+f.W > 1+tolerance || f.Y+f.H > 1+tolerance {
		problems = append(problems, "rectangle exceeds the page")
	}

	if len(problems) > 0 {
		return &ValidationError{FieldID: f.ID, Problems: problems}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
