package marker

import (
	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/typeid"
)

// Options tunes field sizing and overlay output. Zero values fall back to the
// defaults below.
type Options struct {
	MinSize       float64 `json:"minSize"`
	DefaultWidth  float64 `json:"defaultWidth"`
	DefaultHeight float64 `json:"defaultHeight"`

	// HandleSize is the side of a resize hotspot in screen pixels.
	HandleSize float64 `json:"handleSize"`

	// LabelFormat is a fmt pattern receiving the 1-based field ordinal.
	LabelFormat string `json:"labelFormat"`

	NewID func() string `json:"-"`
}

const (
	defaultHandleSize  = 10
	defaultLabelFormat = "חתימה %d"
)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// withDefaults fills zero values. MinSize never drops below document.MinSize,
// the floor the backend enforces on save.
func (o Options) withDefaults() Options {
	if o.MinSize > 1 {
		o.MinSize = 0
	}
	o.MinSize = max(o.MinSize, document.MinSize)
	if o.DefaultWidth <= 0 {
		o.DefaultWidth = document.DefaultWidth
	}
	if o.DefaultHeight <= 0 {
		o.DefaultHeight = document.DefaultHeight
	}
	o.DefaultWidth = max(o.DefaultWidth, o.MinSize)
	o.DefaultHeight = max(o.DefaultHeight, o.MinSize)
	if o.HandleSize <= 0 {
		o.HandleSize = defaultHandleSize
	}
	if o.LabelFormat == "" {
		o.LabelFormat = defaultLabelFormat
	}
	if o.NewID == nil {
		o.NewID = typeid.NewFieldID
	}
	return o
}
