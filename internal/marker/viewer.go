package marker

import (
	"slices"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

// Viewer is the signer's read-only view of a field list: the same projection
// as Marker without selection, handles or pointer editing.
type Viewer struct {
	pages    []document.PageDimensions
	fields   []document.SignatureField
	page     int
	viewport geometry.Viewport
	label    string
}

// NewViewer builds a viewer over loaded geometry and fields.
func NewViewer(info *document.PDFInfo, fields []document.SignatureField, opts Options) (*Viewer, error) {
	if err := checkInfo(info); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	kept := make([]document.SignatureField, 0, len(fields))
	for _, f := range fields {
		if nf, ok := document.Normalize(f, info.PageCount, opts.MinSize); ok {
			kept = append(kept, nf)
		}
	}
	return &Viewer{
		pages:  slices.Clone(info.Pages),
		fields: kept,
		page:   1,
		label:  opts.LabelFormat,
	}, nil
}

// SetPage changes the visible page.
func (v *Viewer) SetPage(page int) error {
	if page < 1 || page > len(v.pages) {
		return ErrPageOutOfRange
	}
	v.page = page
	return nil
}

// SetViewport records the live measurement of the rendered page element.
func (v *Viewer) SetViewport(vp geometry.Viewport) { v.viewport = vp }

// Render projects the current page's fields.
func (v *Viewer) Render() ([]OverlayItem, error) {
	page := v.pages[v.page-1].Size()
	scale, err := geometry.DisplayScale(v.viewport.RenderedWidth, page)
	if err != nil {
		return nil, err
	}
	return Project(v.fields, Projection{
		Page:        v.page,
		PageSize:    page,
		Origin:      v.viewport.Origin(),
		Scale:       scale,
		LabelFormat: v.label,
	})
}

// PagesWithFields lists, in order, every page carrying at least one field.
func (v *Viewer) PagesWithFields() []int {
	var pages []int
	for _, f := range v.fields {
		if !slices.Contains(pages, f.Page) {
			pages = append(pages, f.Page)
		}
	}
	slices.Sort(pages)
	return pages
}

// RequiredCount returns the number of required fields.
func (v *Viewer) RequiredCount() int {
	n := 0
	for _, f := range v.fields {
		if f.Required {
			n++
		}
	}
	return n
}

// Fields returns a copy of the viewed fields.
func (v *Viewer) Fields() []document.SignatureField { return slices.Clone(v.fields) }
