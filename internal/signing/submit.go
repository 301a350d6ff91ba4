package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/signdesk/signdesk/internal/document"
)

var (
	ErrNoSignatureDrawn = errors.New("no signature drawn")
	ErrNoFieldsDefined  = errors.New("no signature fields defined")
	ErrEmbedFailed      = errors.New("embed signature failed")
	ErrSubmitInFlight   = errors.New("submission already in progress")
)

// Embedder is the backend's embed-signature endpoint.
type Embedder interface {
	EmbedSignature(ctx context.Context, req document.EmbedRequest) (*document.EmbedResult, error)
}

// Signature is a drawn signature artifact.
type Signature interface {
	IsEmpty() bool
	DataURI() (string, error)
}

// Submission is everything needed to sign one document.
type Submission struct {
	FileID     string
	SignerName string
	Fields     []document.SignatureField
	Pages      []document.PageDimensions
}

// Submitter sends at most one embed request at a time.
type Submitter struct {
	api Embedder

	mu       sync.Mutex
	inFlight bool
}

func NewSubmitter(api Embedder) *Submitter {
	return &Submitter{api: api}
}

// Submit checks the guards and asks the backend to embed sig at every field.
// A call made while another is outstanding returns ErrSubmitInFlight.
func (s *Submitter) Submit(ctx context.Context, sub Submission, sig Signature) (*document.EmbedResult, error) {
	if sig == nil || sig.IsEmpty() {
		return nil, ErrNoSignatureDrawn
	}
	if len(sub.Fields) == 0 {
		return nil, ErrNoFieldsDefined
	}
	if _, err := Plan(sub.Fields, sub.Pages); err != nil {
		return nil, err
	}

	data, err := sig.DataURI()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	result, err := s.api.EmbedSignature(ctx, document.EmbedRequest{
		FileID:        sub.FileID,
		SignatureData: data,
		SignerName:    sub.SignerName,
		Fields:        sub.Fields,
	})
	if err != nil {
		slog.Error("embed signature", "error", err, "file", sub.FileID)
		return nil, fmt.Errorf("%w: %w", ErrEmbedFailed, err)
	}

	slog.Info("document signed", "file", sub.FileID, "signatures", result.SignatureCount)
	return result, nil
}

// InFlight reports whether a submission is outstanding.
func (s *Submitter) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
