package signing

import (
	"errors"
	"fmt"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

// ErrNoPageGeometry means a field refers to a page with no known dimensions.
var ErrNoPageGeometry = errors.New("no geometry for page")

// Placement is where one field's signature goes, in PDF user space of its page.
type Placement struct {
	FieldID string
	Page    int
	Rect    geometry.Rect
}

// Plan resolves every field against its own page dimensions.
func Plan(fields []document.SignatureField, pages []document.PageDimensions) ([]Placement, error) {
	out := make([]Placement, 0, len(fields))
	for _, f := range fields {
		if f.Page < 1 || f.Page > len(pages) {
			return nil, fmt.Errorf("%w: field %s on page %d of %d", ErrNoPageGeometry, f.ID, f.Page, len(pages))
		}
		out = append(out, Placement{
			FieldID: f.ID,
			Page:    f.Page,
			Rect:    geometry.ToUserSpace(f.Rect(), pages[f.Page-1].Size()),
		})
	}
	return out, nil
}
