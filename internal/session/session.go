package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/signdesk/signdesk/internal/backend"
	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
	"github.com/signdesk/signdesk/internal/marker"
	"github.com/signdesk/signdesk/internal/pdfinfo"
	"github.com/signdesk/signdesk/internal/signing"
)

var (
	ErrNotLoaded    = errors.New("session not loaded")
	ErrSaveFailed   = errors.New("save signature fields failed")
	ErrSaveInFlight = errors.New("save already in progress")
	ErrOpenInFlight = errors.New("document load in progress")
)

// API is the slice of the contract backend a session talks to.
type API interface {
	pdfinfo.Source
	signing.Embedder
	Fields(ctx context.Context, fileID string) ([]document.SignatureField, error)
	SaveFields(ctx context.Context, fileID string, fields []document.SignatureField) error
}

// Session is one editing session over one document at a time. Marker state
// and the bound API are only touched under mu; network calls run without
// holding it.
type Session struct {
	mu            sync.Mutex
	api           API
	submitter     *signing.Submitter
	fileID        string
	marker        *marker.Marker
	geometry      *pdfinfo.Geometry
	opening       bool
	saving        bool
	savedRevision uint64
}

func New(api API, opts marker.Options) *Session {
	return &Session{
		api:       api,
		submitter: signing.NewSubmitter(api),
		marker:    marker.New(opts),
	}
}

// Open loads page geometry and the saved fields for fileID, replacing any
// previous document. Geometry failures are fatal (pdfinfo.ErrDocumentUnavailable);
// a file with no saved fields yet starts empty. It returns how many saved
// fields were dropped as unrepairable.
func (s *Session) Open(ctx context.Context, fileID string) (int, error) {
	s.mu.Lock()
	api := s.api
	s.mu.Unlock()
	return s.OpenWith(ctx, api, fileID)
}

// OpenWith is Open against another backend. The session switches to api only
// once the document has loaded; on failure the previous document and backend
// stay in place. Loading is refused while a save, a submission or another
// load is outstanding.
func (s *Session) OpenWith(ctx context.Context, api API, fileID string) (int, error) {
	s.mu.Lock()
	switch {
	case s.saving:
		s.mu.Unlock()
		return 0, ErrSaveInFlight
	case s.opening:
		s.mu.Unlock()
		return 0, ErrOpenInFlight
	case s.submitter.InFlight():
		s.mu.Unlock()
		return 0, signing.ErrSubmitInFlight
	}
	s.opening = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.opening = false
		s.mu.Unlock()
	}()

	geom, err := pdfinfo.NewResolver(api).Resolve(ctx, fileID)
	if err != nil {
		return 0, err
	}

	fields, err := api.Fields(ctx, fileID)
	if err != nil {
		var apiErr *backend.APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
			return 0, fmt.Errorf("load signature fields: %w", err)
		}
		fields = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped, err := s.marker.Load(geom.Info(), fields)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		slog.Warn("dropped saved fields", "file", fileID, "count", dropped)
	}
	if api != s.api {
		s.api = api
		s.submitter = signing.NewSubmitter(api)
	}
	s.fileID = fileID
	s.geometry = geom
	s.savedRevision = s.marker.Revision()
	return dropped, nil
}

// Edit runs fn against the marker while holding the session lock.
func (s *Session) Edit(fn func(m *marker.Marker) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.geometry == nil {
		return ErrNotLoaded
	}
	return fn(s.marker)
}

// Interact is Edit for pointer and view commands. An unmeasured viewport
// (geometry.ErrTransformUnready) defers the command silently.
func (s *Session) Interact(fn func(m *marker.Marker) error) error {
	err := s.Edit(fn)
	if errors.Is(err, geometry.ErrTransformUnready) {
		slog.Debug("deferred until viewport is measured", "file", s.FileID())
		return nil
	}
	return err
}

// Save persists the current field list. Only one save runs at a time; a call
// made while one is outstanding returns ErrSaveInFlight and sends nothing.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.geometry == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	if s.opening {
		s.mu.Unlock()
		return ErrOpenInFlight
	}
	s.saving = true
	api := s.api
	fileID := s.fileID
	fields := s.marker.Fields()
	revision := s.marker.Revision()
	s.mu.Unlock()

	err := api.SaveFields(ctx, fileID, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		slog.Error("save signature fields", "error", err, "file", fileID)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if fileID == s.fileID {
		s.savedRevision = revision
	}
	slog.Info("signature fields saved", "file", fileID, "count", len(fields))
	return nil
}

// Dirty reports whether there are edits not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry != nil && s.marker.Revision() != s.savedRevision
}

// Saving reports whether a save is outstanding.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Submit embeds sig at every current field.
func (s *Session) Submit(ctx context.Context, signerName string, sig signing.Signature) (*document.EmbedResult, error) {
	s.mu.Lock()
	if s.geometry == nil {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if s.opening {
		s.mu.Unlock()
		return nil, ErrOpenInFlight
	}
	submitter := s.submitter
	sub := signing.Submission{
		FileID:     s.fileID,
		SignerName: signerName,
		Fields:     s.marker.Fields(),
		Pages:      s.geometry.Info().Pages,
	}
	s.mu.Unlock()

	return submitter.Submit(ctx, sub, sig)
}

func (s *Session) FileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileID
}
