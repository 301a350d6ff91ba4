package document

import (
	"github.com/signdesk/signdesk/internal/geometry"
)

// Field geometry limits in normalized page space.
const (
	MinSize       = 0.05
	DefaultWidth  = 0.20
	DefaultHeight = 0.06
)

// SignatureField is a rectangular signing zone on one page. Geometry is
// normalized: x, y, width and height are fractions of the page size with a
// top-left origin.
type SignatureField struct {
	ID       string  `json:"id"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	Required bool    `json:"required"`
}

// Rect returns the field geometry as a normalized rect.
func (f SignatureField) Rect() geometry.Rect {
	return geometry.Rect{X: f.X, Y: f.Y, Width: f.W, Height: f.H}
}

// WithRect returns a copy of f with its geometry replaced by r.
func (f SignatureField) WithRect(r geometry.Rect) SignatureField {
	f.X, f.Y, f.W, f.H = r.X, r.Y, r.Width, r.Height
	return f
}

// PageDimensions is the size of one PDF page in points.
type PageDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size converts the dimensions to a geometry size.
func (p PageDimensions) Size() geometry.Size {
	return geometry.Size{Width: p.Width, Height: p.Height}
}

// PDFInfo is the payload of the pdf-info endpoint.
type PDFInfo struct {
	PageCount int              `json:"page_count"`
	Pages     []PageDimensions `json:"pages"`
}

// FieldList is the payload of the signature-fields endpoint.
type FieldList struct {
	Fields []SignatureField `json:"fields"`
}

// EmbedRequest asks the backend to stamp a signature into every field.
// When Fields is empty the backend uses the saved field list.
type EmbedRequest struct {
	FileID        string           `json:"file_id"`
	SignatureData string           `json:"signature_data"`
	SignerName    string           `json:"signer_name"`
	Fields        []SignatureField `json:"fields,omitempty"`
}

// EmbedResult describes the produced signed document.
type EmbedResult struct {
	SignedDocumentURL string `json:"signed_document_url"`
	SignedAt          string `json:"signed_at"`
	SignerName        string `json:"signer_name"`
	SignatureCount    int    `json:"signature_count"`
}
