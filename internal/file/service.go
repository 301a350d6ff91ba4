package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/pdfdoc"
	"github.com/signdesk/signdesk/internal/store"
	"github.com/signdesk/signdesk/internal/typeid"
)

const maxUploadSize = 32 << 20 // 32MB

var (
	ErrNotFound = errors.New("file not found")
	ErrNotPDF   = errors.New("not a pdf document")
	ErrTooLarge = errors.New("file too large")
)

// Service stores uploaded contract PDFs on disk and their metadata in the store.
type Service struct {
	store store.Store
	pdf   pdfdoc.Processor
	dir   string
}

func NewService(st store.Store, pdf pdfdoc.Processor, dir string) *Service {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create file dir", "error", err, "dir", dir)
	}
	return &Service{store: st, pdf: pdf, dir: dir}
}

// Upload validates and stores a PDF, recording its page geometry.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (*store.File, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, ErrTooLarge
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	info, err := s.pdf.Info(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPDF, err)
	}

	id := typeid.NewFileID()
	path := filepath.Join(s.dir, id+".pdf")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	f := &store.File{
		ID:    id,
		Name:  filepath.Base(name),
		Path:  path,
		Size:  int64(len(data)),
		Pages: info.Pages,
	}
	if err := s.store.CreateFile(ctx, f); err != nil {
		os.Remove(path)
		return nil, err
	}

	slog.Info("file uploaded", "file", id, "pages", info.PageCount, "size", f.Size)
	return f, nil
}

// Get returns the metadata of a stored file.
func (s *Service) Get(ctx context.Context, id string) (*store.File, error) {
	if err := typeid.Validate(id, typeid.PrefixFile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	f, err := s.store.GetFile(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Info returns the page geometry of a stored file.
func (s *Service) Info(ctx context.Context, id string) (*document.PDFInfo, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.Info(), nil
}

// Open opens the stored PDF for reading.
func (s *Service) Open(ctx context.Context, id string) (*store.File, *os.File, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rd, err := os.Open(f.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", f.ID, err)
	}
	return f, rd, nil
}

// Dir is where PDFs, original and signed, are kept.
func (s *Service) Dir() string { return s.dir }
