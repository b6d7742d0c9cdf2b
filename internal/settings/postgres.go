package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Pool used by PostgresStore.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// PostgresStore keeps documents in the _tn_documents table.
type PostgresStore struct {
	db      querier
	closeFn func()
}

// NewPostgresStore wraps db (normally a *pgxpool.Pool). closeFn may be nil.
func NewPostgresStore(db querier, closeFn func()) *PostgresStore {
	return &PostgresStore{db: db, closeFn: closeFn}
}

const pgSchema = `CREATE TABLE IF NOT EXISTS _tn_documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data::text FROM _tn_documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s/%s: %w", collection, id, err)
	}
	return data, nil
}

func (s *PostgresStore) PutDocument(ctx context.Context, collection, id string, data []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO _tn_documents (collection, id, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO UPDATE
		   SET data = EXCLUDED.data,
		       updated_at = now()`,
		collection, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("putting document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if p, ok := s.db.(pinger); ok {
		return p.Ping(ctx)
	}
	var one int
	return s.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
