package signature

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/signdesk/signdesk/internal/collab"
	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/field"
	"github.com/signdesk/signdesk/internal/file"
	"github.com/signdesk/signdesk/internal/pdfdoc"
	"github.com/signdesk/signdesk/internal/signing"
	"github.com/signdesk/signdesk/internal/store"
	"github.com/signdesk/signdesk/internal/typeid"
)

var (
	ErrBadSignature   = errors.New("invalid signature image")
	ErrSignerRequired = errors.New("signer name is required")
	ErrNoFields       = errors.New("no signature fields defined")
	ErrFileMismatch   = errors.New("file id does not match request path")
	ErrNotFound       = errors.New("signed document not found")
)

type Service struct {
	store     store.Store
	files     *file.Service
	pdf       pdfdoc.Processor
	links     *Links
	notify    field.Notifier
	publicURL string
	now       func() time.Time
}

func NewService(st store.Store, files *file.Service, pdf pdfdoc.Processor, links *Links, notify field.Notifier, publicURL string) *Service {
	return &Service{
		store:     st,
		files:     files,
		pdf:       pdf,
		links:     links,
		notify:    notify,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// Embed stamps the signature into every field of the file and stores the
// signed copy. Fields in the request take precedence over the saved list.
func (s *Service) Embed(ctx context.Context, fileID string, req document.EmbedRequest) (*document.EmbedResult, error) {
	if req.FileID != "" && req.FileID != fileID {
		return nil, ErrFileMismatch
	}
	signer := strings.TrimSpace(req.SignerName)
	if signer == "" {
		return nil, ErrSignerRequired
	}
	img, err := signing.DecodeDataURI(req.SignatureData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}

	f, rd, err := s.files.Open(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	fields := req.Fields
	if len(fields) == 0 {
		if fields, err = s.store.ListFields(ctx, fileID); err != nil {
			return nil, err
		}
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	if err := field.Check(fields, len(f.Pages)); err != nil {
		return nil, err
	}
	plan, err := signing.Plan(fields, f.Pages)
	if err != nil {
		return nil, err
	}

	var signed bytes.Buffer
	if err := s.pdf.Stamp(rd, &signed, img, plan); err != nil {
		if errors.Is(err, pdfdoc.ErrNoInk) {
			return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
		}
		return nil, fmt.Errorf("stamp %s: %w", fileID, err)
	}

	sig := &store.Signature{
		ID:             typeid.NewSignatureID(),
		FileID:         fileID,
		SignerName:     signer,
		SignatureCount: len(plan),
		SignedAt:       s.now().UTC().Truncate(time.Second),
	}
	sum := blake2b.Sum256(signed.Bytes())
	sig.Digest = hex.EncodeToString(sum[:])
	sig.Path = filepath.Join(s.files.Dir(), sig.ID+".pdf")

	if err := os.WriteFile(sig.Path, signed.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("write signed document: %w", err)
	}
	if err := s.store.CreateSignature(ctx, sig); err != nil {
		os.Remove(sig.Path)
		return nil, err
	}

	link, err := s.Link(sig.ID)
	if err != nil {
		return nil, err
	}

	signedAt := sig.SignedAt.Format(time.RFC3339)
	slog.Info("document signed", "file", fileID, "signature", sig.ID, "fields", sig.SignatureCount, "digest", sig.Digest)
	if s.notify != nil {
		s.notify.Notify(fileID, collab.TypeDocumentSigned, collab.DocumentSignedPayload{
			SignatureID:    sig.ID,
			SignerName:     sig.SignerName,
			SignedAt:       signedAt,
			SignatureCount: sig.SignatureCount,
		})
	}

	return &document.EmbedResult{
		SignedDocumentURL: link,
		SignedAt:          signedAt,
		SignerName:        sig.SignerName,
		SignatureCount:    sig.SignatureCount,
	}, nil
}

// Link returns a fresh expiring download URL for a signed document.
func (s *Service) Link(signatureID string) (string, error) {
	token, _, err := s.links.Issue(signatureID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/signed/%s?token=%s", s.publicURL, url.PathEscape(signatureID), url.QueryEscape(token)), nil
}

// Resolve checks a download token for signatureID and returns the record.
func (s *Service) Resolve(ctx context.Context, signatureID, token string) (*store.Signature, error) {
	granted, err := s.links.Verify(token)
	if err != nil {
		return nil, err
	}
	if granted != signatureID {
		return nil, fmt.Errorf("%w: token is for another document", ErrLinkInvalid)
	}

	sig, err := s.store.GetSignature(ctx, signatureID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, signatureID)
	}
	return sig, err
}
