package field

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/signdesk/signdesk/internal/collab"
	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/file"
	"github.com/signdesk/signdesk/internal/store"
)

// Notifier pushes events to open viewers of a file.
type Notifier interface {
	Notify(fileID, msgType string, payload any)
}

// InvalidFieldsError collects every field of a rejected save.
type InvalidFieldsError struct {
	Fields []*document.ValidationError
}

func (e *InvalidFieldsError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *InvalidFieldsError) Unwrap() error { return document.ErrInvalidField }

type Service struct {
	store  store.Store
	files  *file.Service
	notify Notifier
	now    func() time.Time
}

func NewService(st store.Store, files *file.Service, notify Notifier) *Service {
	return &Service{store: st, files: files, notify: notify, now: time.Now}
}

// List returns the saved fields of a file, in saved order.
func (s *Service) List(ctx context.Context, fileID string) ([]document.SignatureField, error) {
	if _, err := s.files.Get(ctx, fileID); err != nil {
		return nil, err
	}
	return s.store.ListFields(ctx, fileID)
}

// Save replaces the field list of a file. Nothing is written unless every
// field satisfies the invariants against the file's page geometry.
func (s *Service) Save(ctx context.Context, fileID string, fields []document.SignatureField) ([]document.SignatureField, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := Check(fields, len(f.Pages)); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []document.SignatureField{}
	}

	if err := s.store.ReplaceFields(ctx, fileID, fields); err != nil {
		return nil, fmt.Errorf("replace fields: %w", err)
	}

	required := 0
	for _, sf := range fields {
		if sf.Required {
			required++
		}
	}
	slog.Info("signature fields saved", "file", fileID, "count", len(fields), "required", required)
	if s.notify != nil {
		s.notify.Notify(fileID, collab.TypeFieldsSaved, collab.FieldsSavedPayload{
			Count:    len(fields),
			Required: required,
			SavedAt:  s.now().UTC().Format(time.RFC3339),
		})
	}
	return fields, nil
}

// Check validates a field list against a page count, including id uniqueness.
func Check(fields []document.SignatureField, pageCount int) error {
	var invalid []*document.ValidationError
	seen := make(map[string]bool, len(fields))
	for _, sf := range fields {
		err := document.Validate(sf, pageCount, document.MinSize)
		var verr *document.ValidationError
		if err != nil && !errors.As(err, &verr) {
			return err
		}
		if sf.ID != "" && seen[sf.ID] {
			if verr == nil {
				verr = &document.ValidationError{FieldID: sf.ID}
			}
			verr.Problems = append(verr.Problems, "duplicate id")
		}
		seen[sf.ID] = true
		if verr != nil {
			invalid = append(invalid, verr)
		}
	}
	if len(invalid) > 0 {
		return &InvalidFieldsError{Fields: invalid}
	}
	return nil
}
