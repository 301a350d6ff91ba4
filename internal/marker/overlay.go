package marker

import (
	"encoding/json"
	"fmt"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

// OverlayItem is one rectangle for the frontend to draw over the rendered page.
type OverlayItem struct {
	Op       string  `json:"op"`      // "field" or "handle"
	FieldID  string  `json:"fieldId"` // For hit correlation
	X        float64 `json:"x"`       // Screen pixels
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Label    string  `json:"label,omitempty"`
	Required bool    `json:"required,omitempty"`
	Selected bool    `json:"selected,omitempty"`
	Handle   string  `json:"handle,omitempty"` // Corner name for "handle" ops
}

// Projection carries everything needed to place fields on screen.
type Projection struct {
	Page        int
	PageSize    geometry.Size
	Origin      geometry.Point
	Scale       float64
	Selected    string
	HandleSize  float64 // 0 disables handles
	LabelFormat string
}

// Project maps the fields of one page into screen space. Items come in list
// order; the selected field is followed by its four handles. Labels number
// fields across the whole document so they stay stable when paging.
func Project(fields []document.SignatureField, p Projection) ([]OverlayItem, error) {
	var items []OverlayItem
	for i, f := range fields {
		if f.Page != p.Page {
			continue
		}

		r, err := geometry.ToScreenSpace(f.Rect(), p.Origin, p.PageSize, p.Scale)
		if err != nil {
			return nil, err
		}

		selected := f.ID == p.Selected
		item := OverlayItem{
			Op:       "field",
			FieldID:  f.ID,
			X:        r.X,
			Y:        r.Y,
			Width:    r.Width,
			Height:   r.Height,
			Required: f.Required,
			Selected: selected,
		}
		if p.LabelFormat != "" {
			item.Label = fmt.Sprintf(p.LabelFormat, i+1)
		}
		items = append(items, item)

		if selected && p.HandleSize > 0 {
			for _, h := range Handles {
				hr := handleRect(h.corner(r), p.HandleSize)
				items = append(items, OverlayItem{
					Op:      "handle",
					FieldID: f.ID,
					X:       hr.X,
					Y:       hr.Y,
					Width:   hr.Width,
					Height:  hr.Height,
					Handle:  h.String(),
				})
			}
		}
	}
	return items, nil
}

// OverlayToJSON serializes overlay items to JSON.
func OverlayToJSON(items []OverlayItem) (string, error) {
	if items == nil {
		items = []OverlayItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
