package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/signdesk/signdesk/internal/document"
)

var ErrNotFound = errors.New("not found")

// File is an uploaded contract PDF.
type File struct {
	ID        string
	Name      string
	Path      string
	Size      int64
	Pages     []document.PageDimensions
	CreatedAt time.Time
}

// Info returns the page geometry as a pdf-info payload.
func (f *File) Info() *document.PDFInfo {
	return &document.PDFInfo{PageCount: len(f.Pages), Pages: f.Pages}
}

// Signature records one signing of a file and where the signed copy lives.
type Signature struct {
	ID             string
	FileID         string
	SignerName     string
	SignatureCount int
	Digest         string
	Path           string
	SignedAt       time.Time
}

// Store is the durable record of files, their signature fields and signatures.
type Store interface {
	Migrate(ctx context.Context) error

	CreateFile(ctx context.Context, f *File) error
	GetFile(ctx context.Context, id string) (*File, error)

	ListFields(ctx context.Context, fileID string) ([]document.SignatureField, error)
	ReplaceFields(ctx context.Context, fileID string, fields []document.SignatureField) error

	CreateSignature(ctx context.Context, s *Signature) error
	GetSignature(ctx context.Context, id string) (*Signature, error)

	Close() error
}

// Open connects to the database for driver ("pgx" or "sqlite") and applies
// pending migrations.
func Open(ctx context.Context, driver, url string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "pgx":
		s, err = NewPostgres(ctx, url)
	case "sqlite":
		s, err = NewSQLite(url)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func encodePages(pages []document.PageDimensions) ([]byte, error) {
	if pages == nil {
		pages = []document.PageDimensions{}
	}
	data, err := json.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("marshal pages: %w", err)
	}
	return data, nil
}

func decodePages(data []byte) ([]document.PageDimensions, error) {
	var pages []document.PageDimensions
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("unmarshal pages: %w", err)
	}
	return pages, nil
}
