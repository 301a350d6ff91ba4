package marker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

var (
	ErrNotLoaded       = errors.New("no document loaded")
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrInvalidGeometry = errors.New("invalid page geometry")
)

// Marker owns the editing state for one document: the field store, the
// selection, the interaction state and the current view. All geometry
// mutation funnels through its pointer handlers and field operations.
type Marker struct {
	opts Options

	// Page geometry, written once per Load
	pages []document.PageDimensions

	store    *Store
	state    State
	selected string
	marking  bool

	// View state
	page     int
	viewport geometry.Viewport

	// Bumped on every field mutation
	revision uint64
}

// New creates an empty marker.
func New(opts Options) *Marker {
	opts = opts.withDefaults()
	return &Marker{
		opts:  opts,
		store: NewStore(opts),
		state: Idle{},
	}
}

// --- Commands ---

// Load installs page geometry and the saved field list. Fields that cannot be
// repaired (page out of range, missing id) are dropped and counted.
func (m *Marker) Load(info *document.PDFInfo, fields []document.SignatureField) (int, error) {
	if err := checkInfo(info); err != nil {
		return 0, err
	}

	kept := make([]document.SignatureField, 0, len(fields))
	dropped := 0
	for _, f := range fields {
		nf, ok := document.Normalize(f, info.PageCount, m.opts.MinSize)
		if !ok {
			dropped++
			continue
		}
		kept = append(kept, nf)
	}

	m.pages = append([]document.PageDimensions(nil), info.Pages...)
	m.store.Replace(kept)
	m.state = Idle{}
	m.selected = ""
	m.page = 1
	m.revision = 0
	return dropped, nil
}

// SetPage changes the visible page. An in-progress gesture is committed.
func (m *Marker) SetPage(page int) error {
	if len(m.pages) == 0 {
		return ErrNotLoaded
	}
	if page < 1 || page > len(m.pages) {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	if page != m.page {
		m.state = Idle{}
		m.page = page
	}
	return nil
}

// SetViewport records the live measurement of the rendered page element.
func (m *Marker) SetViewport(v geometry.Viewport) {
	m.viewport = v
}

// SetMarkingMode toggles whether clicks on empty page area create fields.
func (m *Marker) SetMarkingMode(on bool) {
	m.marking = on
}

// Select marks a field as selected. An empty id clears the selection.
func (m *Marker) Select(id string) bool {
	if id == "" {
		m.selected = ""
		return true
	}
	if _, ok := m.store.Get(id); !ok {
		return false
	}
	m.selected = id
	return true
}

// Delete removes a field, clearing the selection and any gesture on it.
func (m *Marker) Delete(id string) bool {
	if !m.store.Delete(id) {
		return false
	}
	if m.selected == id {
		m.selected = ""
	}
	if gestureField(m.state) == id {
		m.state = Idle{}
	}
	m.revision++
	return true
}

// DeleteSelected removes the selected field, if any.
func (m *Marker) DeleteSelected() bool {
	if m.selected == "" {
		return false
	}
	return m.Delete(m.selected)
}

// ClearAll removes every field.
func (m *Marker) ClearAll() {
	if m.store.ClearAll() > 0 {
		m.revision++
	}
	m.selected = ""
	m.state = Idle{}
}

// SetRequired toggles the required flag of a field.
func (m *Marker) SetRequired(id string, required bool) bool {
	f, ok := m.store.Get(id)
	if !ok {
		return false
	}
	if f.Required != required {
		m.store.SetRequired(id, required)
		m.revision++
	}
	return true
}

// PointerDown starts a gesture at a screen position. A handle of the selected
// field starts a resize, a field body starts a drag, and empty page area in
// marking mode creates a field and drags it. Returns the resulting state.
func (m *Marker) PointerDown(p geometry.Point) (State, error) {
	doc, err := m.toDocument(p)
	if err != nil {
		return m.state, err
	}

	hit, err := m.HitTest(p)
	if err != nil {
		return m.state, err
	}

	switch {
	case hit.Handle != HandleNone:
		f, _ := m.store.Get(hit.FieldID)
		m.state = Resizing{FieldID: f.ID, Handle: hit.Handle, Anchor: Anchor{Pointer: doc, Origin: f.Rect()}}

	case hit.FieldID != "":
		f, _ := m.store.Get(hit.FieldID)
		m.selected = f.ID
		m.state = Dragging{FieldID: f.ID, Anchor: Anchor{Pointer: doc, Origin: f.Rect()}}

	case m.marking && onPage(doc):
		f := m.store.Create(m.page, doc)
		m.selected = f.ID
		m.revision++
		m.state = Dragging{FieldID: f.ID, Anchor: Anchor{Pointer: doc, Origin: f.Rect()}}

	default:
		m.selected = ""
		m.state = Idle{}
	}
	return m.state, nil
}

// PointerMove updates the field under gesture. It is a no-op while idle.
func (m *Marker) PointerMove(p geometry.Point) error {
	if _, idle := m.state.(Idle); idle {
		return nil
	}
	doc, err := m.toDocument(p)
	if err != nil {
		return err
	}

	id, r, ok := apply(m.state, doc, m.opts.MinSize)
	if !ok {
		return nil
	}
	before, _ := m.store.Get(id)
	after, ok := m.store.SetRect(id, r)
	if ok && after != before {
		m.revision++
	}
	return nil
}

// PointerUp commits the gesture at the last processed position.
func (m *Marker) PointerUp() {
	m.state = Idle{}
}

// PointerLeave behaves like PointerUp: the gesture is committed, not rolled back.
func (m *Marker) PointerLeave() {
	m.state = Idle{}
}

// --- Queries ---

// Hit identifies what lies under a screen position.
type Hit struct {
	FieldID string
	Handle  Handle
}

// MarshalJSON renders the handle by name.
func (h Hit) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"fieldId": h.FieldID, "handle": h.Handle.String()})
}

// HitTest reports the topmost field or handle at a screen position on the
// current page. Handles are only live on the selected field.
func (m *Marker) HitTest(p geometry.Point) (Hit, error) {
	page, scale, err := m.projection()
	if err != nil {
		return Hit{}, err
	}
	origin := m.viewport.Origin()

	if sel, ok := m.store.Get(m.selected); ok && sel.Page == m.page {
		r, err := geometry.ToScreenSpace(sel.Rect(), origin, page, scale)
		if err != nil {
			return Hit{}, err
		}
		for _, h := range Handles {
			if handleRect(h.corner(r), m.opts.HandleSize).Contains(p) {
				return Hit{FieldID: sel.ID, Handle: h}, nil
			}
		}
	}

	fields := m.store.OnPage(m.page)
	for i := len(fields) - 1; i >= 0; i-- {
		r, err := geometry.ToScreenSpace(fields[i].Rect(), origin, page, scale)
		if err != nil {
			return Hit{}, err
		}
		if r.Contains(p) {
			return Hit{FieldID: fields[i].ID}, nil
		}
	}
	return Hit{}, nil
}

// Render projects the fields of the current page into screen space.
func (m *Marker) Render() ([]OverlayItem, error) {
	page, scale, err := m.projection()
	if err != nil {
		return nil, err
	}
	return Project(m.store.Fields(), Projection{
		Page:        m.page,
		PageSize:    page,
		Origin:      m.viewport.Origin(),
		Scale:       scale,
		Selected:    m.selected,
		HandleSize:  m.opts.HandleSize,
		LabelFormat: m.opts.LabelFormat,
	})
}

// Fields returns a copy of the field list.
func (m *Marker) Fields() []document.SignatureField { return m.store.Fields() }

// Field returns one field by id.
func (m *Marker) Field(id string) (document.SignatureField, bool) { return m.store.Get(id) }

// State returns the current interaction state.
func (m *Marker) State() State { return m.state }

// Selected returns the selected field id, or "".
func (m *Marker) Selected() string { return m.selected }

// MarkingMode reports whether marking mode is on.
func (m *Marker) MarkingMode() bool { return m.marking }

// Page returns the current 1-based page.
func (m *Marker) Page() int { return m.page }

// PageCount returns the number of pages of the loaded document.
func (m *Marker) PageCount() int { return len(m.pages) }

// Pages returns the loaded page geometry.
func (m *Marker) Pages() []document.PageDimensions {
	return append([]document.PageDimensions(nil), m.pages...)
}

// Revision increases on every field mutation.
func (m *Marker) Revision() uint64 { return m.revision }

// DisplayScale returns the current rendered-to-document scale.
func (m *Marker) DisplayScale() (float64, error) {
	_, scale, err := m.projection()
	return scale, err
}

func (m *Marker) projection() (geometry.Size, float64, error) {
	if len(m.pages) == 0 {
		return geometry.Size{}, 0, ErrNotLoaded
	}
	page := m.pages[m.page-1].Size()
	scale, err := geometry.DisplayScale(m.viewport.RenderedWidth, page)
	if err != nil {
		return geometry.Size{}, 0, err
	}
	return page, scale, nil
}

func (m *Marker) toDocument(p geometry.Point) (geometry.Point, error) {
	page, scale, err := m.projection()
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.ToDocumentSpace(p, m.viewport.Origin(), page, scale)
}

func checkInfo(info *document.PDFInfo) error {
	if info == nil || info.PageCount < 1 || info.PageCount != len(info.Pages) {
		return ErrInvalidGeometry
	}
	for i, p := range info.Pages {
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("%w: page %d is %vx%v", ErrInvalidGeometry, i+1, p.Width, p.Height)
		}
	}
	return nil
}

func gestureField(s State) string {
	switch s := s.(type) {
	case Dragging:
		return s.FieldID
	case Resizing:
		return s.FieldID
	}
	return ""
}

func onPage(p geometry.Point) bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

func handleRect(c geometry.Point, size float64) geometry.Rect {
	return geometry.Rect{X: c.X - size/2, Y: c.Y - size/2, Width: size, Height: size}
}
