package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore implementa DocumentStore sobre una tabla JSONB única.
// Esquema en migrations/postgres/0001_documents.sql.
type pgStore struct {
	pool *pgxpool.Pool
}

func newPGStore(ctx context.Context, cfg Config) (*pgStore, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) Create(ctx context.Context, collection, id string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO documents (collection, id, doc, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`
	_, err = s.pool.Exec(ctx, q, collection, id, raw)
	return err
}

func (s *pgStore) GetByID(ctx context.Context, collection, id string) (map[string]any, error) {
	const q = `
		SELECT doc FROM documents
		WHERE collection = $1 AND id = $2 AND deleted_at IS NULL`

	var raw []byte
	if err := s.pool.QueryRow(ctx, q, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *pgStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	// El merge JSONB aplica el patch campo a campo.
	const q = `
		UPDATE documents
		SET doc = doc || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2 AND deleted_at IS NULL`

	tag, err := s.pool.Exec(ctx, q, collection, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, collection, id string) error {
	const q = `
		UPDATE documents
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE collection = $1 AND id = $2 AND deleted_at IS NULL`

	tag, err := s.pool.Exec(ctx, q, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}
