package document

// NewSampleInfo returns page geometry for a three-page contract mixing Letter
// and A4 pages. The wasm playground uses it when no backend is configured.
func NewSampleInfo() *PDFInfo {
	return &PDFInfo{
		PageCount: 3,
		Pages: []PageDimensions{
			{Width: 612, Height: 792},
			{Width: 595.28, Height: 841.89},
			{Width: 612, Height: 792},
		},
	}
}

// NewSampleFields returns a field list matching NewSampleInfo.
func NewSampleFields() []SignatureField {
	return []SignatureField{
		{ID: "sigfield_sample_1", Page: 1, X: 0.1, Y: 0.82, W: DefaultWidth, H: DefaultHeight, Required: true},
		{ID: "sigfield_sample_2", Page: 3, X: 0.6, Y: 0.85, W: DefaultWidth, H: DefaultHeight, Required: false},
	}
}
