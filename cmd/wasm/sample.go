//go:build js && wasm

package main

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/signdesk/signdesk/internal/document"
)

// sampleAPI serves the built-in sample document from memory so the editor
// can be tried without a backend.
type sampleAPI struct {
	mu     sync.Mutex
	fields []document.SignatureField
}

func newSampleAPI() *sampleAPI {
	return &sampleAPI{fields: document.NewSampleFields()}
}

func (a *sampleAPI) PDFInfo(ctx context.Context, fileID string) (*document.PDFInfo, error) {
	return document.NewSampleInfo(), nil
}

func (a *sampleAPI) Fields(ctx context.Context, fileID string) ([]document.SignatureField, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.fields), nil
}

func (a *sampleAPI) SaveFields(ctx context.Context, fileID string, fields []document.SignatureField) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fields = slices.Clone(fields)
	return nil
}

func (a *sampleAPI) EmbedSignature(ctx context.Context, req document.EmbedRequest) (*document.EmbedResult, error) {
	return &document.EmbedResult{
		SignedDocumentURL: "about:blank",
		SignedAt:          time.Now().UTC().Format(time.RFC3339),
		SignerName:        req.SignerName,
		SignatureCount:    len(req.Fields),
	}, nil
}
