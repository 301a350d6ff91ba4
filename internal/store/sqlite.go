package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/signdesk/signdesk/internal/document"
)

// SQLite is the embedded store used for development and tests.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the pragma below in effect and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := current; i < len(sqliteMigrations); i++ {
		if err := s.apply(ctx, i+1, sqliteMigrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *SQLite) apply(ctx context.Context, version int, stmts []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) CreateFile(ctx context.Context, f *File) error {
	pages, err := encodePages(f.Pages)
	if err != nil {
		return err
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO files (id, name, path, size, pages, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		f.ID, f.Name, f.Path, f.Size, string(pages), f.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (s *SQLite) GetFile(ctx context.Context, id string) (*File, error) {
	var (
		f                File
		pages, createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, path, size, pages, created_at FROM files WHERE id = ?", id).
		Scan(&f.ID, &f.Name, &f.Path, &f.Size, &pages, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}

	if f.Pages, err = decodePages([]byte(pages)); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &f, nil
}

func (s *SQLite) ListFields(ctx context.Context, fileID string) ([]document.SignatureField, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, page, x, y, width, height, required FROM signature_fields WHERE file_id = ? ORDER BY position", fileID)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	fields := []document.SignatureField{}
	for rows.Next() {
		var f document.SignatureField
		if err := rows.Scan(&f.ID, &f.Page, &f.X, &f.Y, &f.W, &f.H, &f.Required); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (s *SQLite) ReplaceFields(ctx context.Context, fileID string, fields []document.SignatureField) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM signature_fields WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete fields: %w", err)
	}
	for i, f := range fields {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO signature_fields (file_id, id, position, page, x, y, width, height, required) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			fileID, f.ID, i, f.Page, f.X, f.Y, f.W, f.H, f.Required)
		if err != nil {
			return fmt.Errorf("insert field %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) CreateSignature(ctx context.Context, sig *Signature) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO signatures (id, file_id, signer_name, signature_count, digest, path, signed_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sig.ID, sig.FileID, sig.SignerName, sig.SignatureCount, sig.Digest, sig.Path, sig.SignedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

func (s *SQLite) GetSignature(ctx context.Context, id string) (*Signature, error) {
	var (
		sig      Signature
		signedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, file_id, signer_name, signature_count, digest, path, signed_at FROM signatures WHERE id = ?", id).
		Scan(&sig.ID, &sig.FileID, &sig.SignerName, &sig.SignatureCount, &sig.Digest, &sig.Path, &signedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signature %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query signature: %w", err)
	}
	if sig.SignedAt, err = time.Parse(time.RFC3339Nano, signedAt); err != nil {
		return nil, fmt.Errorf("parse signed_at: %w", err)
	}
	return &sig, nil
}
