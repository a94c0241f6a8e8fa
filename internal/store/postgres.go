package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps every document as one JSONB row in the documents table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, kind Kind, key string, dst any) error {
	var body []byte
	err := s.db.GetContext(ctx, &body, `SELECT body FROM documents WHERE kind=$1 AND key=$2`, string(kind), key)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", kind, key, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", kind, key, err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, kind Kind, key string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents (kind, key, body) VALUES ($1, $2, $3)
        ON CONFLICT (kind, key) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`, string(kind), key, body)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", kind, key, err)
	}
	return nil
}

func (s *PostgresStore) Keys(ctx context.Context, kind Kind) ([]string, error) {
	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM documents WHERE kind=$1 ORDER BY key ASC`, string(kind)); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return keys, nil
}

// Next returns the stored value and leaves value+1 behind. The row holds the next id
// to issue, starting at 1.
func (s *PostgresStore) Next(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `INSERT INTO counters (name, value) VALUES ($1, 2)
        ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
        RETURNING value - 1`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return id, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Backend = (*PostgresStore)(nil)
