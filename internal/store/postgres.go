package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx pool. Documents are JSONB rows keyed by
// the document key; locks and idempotency records live in their own tables
// with expiry columns swept lazily and by the worker.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the engine tables when missing. Safe to run on every
// startup.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS bodega;
		CREATE TABLE IF NOT EXISTS bodega.documents (
			key       text PRIMARY KEY,
			data      jsonb NOT NULL,
			revision  bigint NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS bodega.locks (
			key        text PRIMARY KEY,
			owner      text NOT NULL,
			expires_at timestamptz NOT NULL
		);
		CREATE TABLE IF NOT EXISTS bodega.responses (
			key        text PRIMARY KEY,
			payload    jsonb NOT NULL,
			expires_at timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS responses_expiry ON bodega.responses (expires_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (Document, error) {
	doc := Document{Key: key}
	err := p.db.QueryRow(ctx, `
		SELECT data, revision
		FROM bodega.documents
		WHERE key = $1
	`, key).Scan(&doc.Data, &doc.Revision)
	if err == pgx.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (p *Postgres) List(ctx context.Context, prefix string) ([]Document, error) {
	rows, err := p.db.Query(ctx, `
		SELECT key, data, revision
		FROM bodega.documents
		WHERE key LIKE $1 || '%'
		ORDER BY key
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Key, &doc.Data, &doc.Revision); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (p *Postgres) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var next int64
	if expected > 0 {
		err = tx.QueryRow(ctx, `
			UPDATE bodega.documents
			SET data = $2, revision = revision + 1, updated_at = now()
			WHERE key = $1 AND revision = $3
			RETURNING revision
		`, key, data, expected).Scan(&next)
		if err == pgx.ErrNoRows {
			var exists bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM bodega.documents WHERE key = $1)
			`, key).Scan(&exists); err != nil {
				return 0, err
			}
			if !exists {
				return 0, ErrNotFound
			}
			return 0, ErrRevisionConflict
		}
		if err != nil {
			return 0, err
		}
	} else {
		err = tx.QueryRow(ctx, `
			INSERT INTO bodega.documents (key, data, revision)
			VALUES ($1, $2, 1)
			ON CONFLICT (key) DO UPDATE
			SET data = $2, revision = bodega.documents.revision + 1, updated_at = now()
			RETURNING revision
		`, key, data).Scan(&next)
		if err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return next, nil
}

func (p *Postgres) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM bodega.locks
		WHERE key = $1 AND expires_at <= now()
	`, key); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO bodega.locks (key, owner, expires_at)
		VALUES ($1, $2, now() + $3)
		ON CONFLICT (key) DO NOTHING
	`, key, owner, ttl)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLockBusy
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ReleaseLock(ctx context.Context, key, owner string) error {
	_, err := p.db.Exec(ctx, `
		DELETE FROM bodega.locks
		WHERE key = $1 AND owner = $2
	`, key, owner)
	return err
}

func (p *Postgres) GetResponse(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := p.db.QueryRow(ctx, `
		SELECT payload
		FROM bodega.responses
		WHERE key = $1 AND expires_at > now()
	`, key).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (p *Postgres) PutResponse(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO bodega.responses (key, payload, expires_at)
		VALUES ($1, $2, now() + $3)
		ON CONFLICT (key) DO NOTHING
	`, key, response, ttl)
	return err
}

func (p *Postgres) Sweep(ctx context.Context, now time.Time) (int64, int64, error) {
	locks, err := p.db.Exec(ctx, `
		DELETE FROM bodega.locks WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, 0, err
	}
	responses, err := p.db.Exec(ctx, `
		DELETE FROM bodega.responses WHERE expires_at <= $1
	`, now)
	if err != nil {
		return locks.RowsAffected(), 0, err
	}
	return locks.RowsAffected(), responses.RowsAffected(), nil
}
