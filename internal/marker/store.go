package marker

import (
	"slices"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

// Store is the ordered, in-memory list of signature fields for one document.
// Every mutation keeps each field inside its page and at least MinSize on each
// side; out-of-range requests are clamped, never rejected.
type Store struct {
	fields []document.SignatureField
	opts   Options
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	return &Store{opts: opts.withDefaults()}
}

// Replace swaps the whole list, e.g. after the initial fetch.
func (s *Store) Replace(fields []document.SignatureField) {
	s.fields = slices.Clone(fields)
}

// Create inserts a default-sized field centered at a normalized point. The
// origin is shifted inward when the rectangle would overflow the page.
func (s *Store) Create(page int, center geometry.Point) document.SignatureField {
	w := min(s.opts.DefaultWidth, 1)
	h := min(s.opts.DefaultHeight, 1)

	f := document.SignatureField{
		ID:   s.opts.NewID(),
		Page: page,
		X:    geometry.Clamp(center.X-w/2, 0, 1-w),
		Y:    geometry.Clamp(center.Y-h/2, 0, 1-h),
		W:    w,
		H:    h,
	}
	s.fields = append(s.fields, f)
	return f
}

// Move translates a field by a normalized delta.
func (s *Store) Move(id string, dx, dy float64) (document.SignatureField, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return document.SignatureField{}, false
	}
	return s.place(i, moveRect(s.fields[i].Rect(), dx, dy)), true
}

// Resize drags the corner named by h by a normalized delta.
func (s *Store) Resize(id string, h Handle, dx, dy float64) (document.SignatureField, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return document.SignatureField{}, false
	}
	return s.place(i, resizeRect(s.fields[i].Rect(), h, dx, dy, s.opts.MinSize)), true
}

// SetRect overwrites a field's geometry, clamped into the page.
func (s *Store) SetRect(id string, r geometry.Rect) (document.SignatureField, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return document.SignatureField{}, false
	}
	return s.place(i, document.Contain(r, s.opts.MinSize)), true
}

// SetRequired toggles whether the signer must fill the field.
func (s *Store) SetRequired(id string, required bool) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.fields[i].Required = required
	return true
}

// Delete removes one field.
func (s *Store) Delete(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.fields = slices.Delete(s.fields, i, i+1)
	return true
}

// ClearAll removes every field and returns how many were removed.
func (s *Store) ClearAll() int {
	n := len(s.fields)
	s.fields = nil
	return n
}

// Get returns a field by id.
func (s *Store) Get(id string) (document.SignatureField, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return document.SignatureField{}, false
	}
	return s.fields[i], true
}

// Fields returns a copy of all fields in creation order.
func (s *Store) Fields() []document.SignatureField {
	return slices.Clone(s.fields)
}

// OnPage returns the fields scoped to page.
func (s *Store) OnPage(page int) []document.SignatureField {
	var out []document.SignatureField
	for _, f := range s.fields {
		if f.Page == page {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of fields.
func (s *Store) Len() int { return len(s.fields) }

func (s *Store) place(i int, r geometry.Rect) document.SignatureField {
	s.fields[i] = s.fields[i].WithRect(r)
	return s.fields[i]
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.fields, func(f document.SignatureField) bool { return f.ID == id })
}

func moveRect(r geometry.Rect, dx, dy float64) geometry.Rect {
	r.X = geometry.Clamp(r.X+dx, 0, 1-r.Width)
	r.Y = geometry.Clamp(r.Y+dy, 0, 1-r.Height)
	return r
}

// resizeRect moves the two edges named by h. The opposite edges stay put and
// a side that would shrink below minSize is pinned there.
func resizeRect(r geometry.Rect, h Handle, dx, dy, minSize float64) geometry.Rect {
	switch h {
	case HandleTopLeft, HandleBottomLeft:
		right := r.Right()
		r.Width = geometry.Clamp(r.Width-dx, minSize, right)
		r.X = max(right-r.Width, 0)
	case HandleTopRight, HandleBottomRight:
		r.Width = geometry.Clamp(r.Width+dx, minSize, 1-r.X)
	}

	switch h {
	case HandleTopLeft, HandleTopRight:
		bottom := r.Bottom()
		r.Height = geometry.Clamp(r.Height-dy, minSize, bottom)
		r.Y = max(bottom-r.Height, 0)
	case HandleBottomLeft, HandleBottomRight:
		r.Height = geometry.Clamp(r.Height+dy, minSize, 1-r.Y)
	}
	return r
}
