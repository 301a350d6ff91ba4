package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signdesk/signdesk/internal/document"
)

// Postgres is the production store.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := p.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := current; i < len(postgresMigrations); i++ {
		version := i + 1
		err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			for _, stmt := range postgresMigrations[i] {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
	}
	return nil
}

func (p *Postgres) CreateFile(ctx context.Context, f *File) error {
	pages, err := encodePages(f.Pages)
	if err != nil {
		return err
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err = p.pool.Exec(ctx,
		"INSERT INTO files (id, name, path, size, pages, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		f.ID, f.Name, f.Path, f.Size, pages, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (p *Postgres) GetFile(ctx context.Context, id string) (*File, error) {
	var (
		f     File
		pages []byte
	)
	err := p.pool.QueryRow(ctx,
		"SELECT id, name, path, size, pages, created_at FROM files WHERE id = $1", id).
		Scan(&f.ID, &f.Name, &f.Path, &f.Size, &pages, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}
	if f.Pages, err = decodePages(pages); err != nil {
		return nil, err
	}
	return &f, nil
}

func (p *Postgres) ListFields(ctx context.Context, fileID string) ([]document.SignatureField, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, page, x, y, width, height, required FROM signature_fields WHERE file_id = $1 ORDER BY position", fileID)
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

func (p *Postgres) ReplaceFields(ctx context.Context, fileID string, fields []document.SignatureField) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM signature_fields WHERE file_id = $1", fileID); err != nil {
			return fmt.Errorf("delete fields: %w", err)
		}

		batch := &pgx.Batch{}
		for i, f := range fields {
			batch.Queue(
				"INSERT INTO signature_fields (file_id, id, position, page, x, y, width, height, required) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
				fileID, f.ID, i, f.Page, f.X, f.Y, f.W, f.H, f.Required)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert fields: %w", err)
		}
		return nil
	})
}

func (p *Postgres) CreateSignature(ctx context.Context, sig *Signature) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO signatures (id, file_id, signer_name, signature_count, digest, path, signed_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		sig.ID, sig.FileID, sig.SignerName, sig.SignatureCount, sig.Digest, sig.Path, sig.SignedAt)
	if err != nil {
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

func (p *Postgres) GetSignature(ctx context.Context, id string) (*Signature, error) {
	var sig Signature
	err := p.pool.QueryRow(ctx,
		"SELECT id, file_id, signer_name, signature_count, digest, path, signed_at FROM signatures WHERE id = $1", id).
		Scan(&sig.ID, &sig.FileID, &sig.SignerName, &sig.SignatureCount, &sig.Digest, &sig.Path, &sig.SignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("signature %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query signature: %w", err)
	}
	return &sig, nil
}
