package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres stores documents as JSONB rows keyed by path. Transactions run
// at serializable isolation with the document rows locked on read, which
// gives the at-most-one-winner guarantee the engine relies on.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres connects a pool and ensures the documents table exists.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, documentsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}

	logger.Info("document store connected",
		zap.Int32("max_conns", pool.Config().MaxConns),
	)
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) GetDocument(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE path = $1`, path,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (p *Postgres) SetDocument(ctx context.Context, path string, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO documents (path, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		path, data)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) ListDocuments(ctx context.Context, prefix string) ([][]byte, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT data FROM documents WHERE path LIKE $1 || '%' ORDER BY path`,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateDocument(ctx context.Context, path string, partial map[string]any) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE documents SET data = data || $2::jsonb, updated_at = now()
		WHERE path = $1`,
		path, partial)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) DeleteDocument(ctx context.Context, path string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// RunTransaction executes fn inside a serializable transaction. Reads
// through the handle lock the document row, so two concurrent handlers of
// the same game serialize at the first Get.
func (p *Postgres) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{IsoLevel: pgx.Serializable},
		func(pgtx pgx.Tx) error {
			return fn(ctx, &postgresTx{tx: pgtx})
		})
}

func (p *Postgres) Close() {
	p.pool.Close()
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := t.tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE path = $1 FOR UPDATE`, path,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (t *postgresTx) Set(ctx context.Context, path string, data []byte) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO documents (path, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		path, data)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}
