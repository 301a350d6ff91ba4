package pdfinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/signdesk/signdesk/internal/document"
)

// ErrDocumentUnavailable means page geometry could not be obtained. It ends
// the editing session; nothing retries automatically.
var ErrDocumentUnavailable = errors.New("document unavailable")

// Source supplies raw page metadata, typically the backend's pdf-info endpoint.
type Source interface {
	PDFInfo(ctx context.Context, fileID string) (*document.PDFInfo, error)
}

// Resolver turns pdf-info responses into trusted page geometry.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Geometry is the immutable page geometry of one loaded document.
type Geometry struct {
	pages []document.PageDimensions
}

// Resolve fetches and checks page geometry for a document. Every failure,
// including a malformed response, is reported as ErrDocumentUnavailable.
func (r *Resolver) Resolve(ctx context.Context, fileID string) (*Geometry, error) {
	info, err := r.source.PDFInfo(ctx, fileID)
	if err != nil {
		slog.Error("resolve page geometry", "error", err, "file", fileID)
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnavailable, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: empty pdf-info", ErrDocumentUnavailable)
	}
	if info.PageCount < 1 || info.PageCount != len(info.Pages) {
		return nil, fmt.Errorf("%w: page_count %d does not match %d pages", ErrDocumentUnavailable, info.PageCount, len(info.Pages))
	}
	for i, p := range info.Pages {
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("%w: page %d has size %vx%v", ErrDocumentUnavailable, i+1, p.Width, p.Height)
		}
	}

	return &Geometry{pages: append([]document.PageDimensions(nil), info.Pages...)}, nil
}

// PageCount returns the number of pages.
func (g *Geometry) PageCount() int { return len(g.pages) }

// Page returns the dimensions of a 1-based page.
func (g *Geometry) Page(n int) (document.PageDimensions, bool) {
	if n < 1 || n > len(g.pages) {
		return document.PageDimensions{}, false
	}
	return g.pages[n-1], true
}

// Info returns a copy of the geometry as a pdf-info payload.
func (g *Geometry) Info() *document.PDFInfo {
	return &document.PDFInfo{
		PageCount: len(g.pages),
		Pages:     append([]document.PageDimensions(nil), g.pages...),
	}
}
