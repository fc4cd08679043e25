package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/lib/pq"
)

// foreignKeyViolation is the PostgreSQL error code for a missing referenced row.
const foreignKeyViolation = "23503"

type EntityStore struct {
	db *sql.DB
}

func NewEntityStore(db *sql.DB) *EntityStore {
	return &EntityStore{db: db}
}

// Register makes an entity known to the store.
func (s *EntityStore) Register(ctx context.Context, kind models.EntityKind, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entities (kind, id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		kind, id,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s %d: %w", kind, id, err)
	}

	return nil
}

func (s *EntityStore) Exists(ctx context.Context, kind models.EntityKind, id int64) (bool, error) {
	var exists bool

	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM entities WHERE kind = $1 AND id = $2)",
		kind, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s %d: %w", kind, id, err)
	}

	return exists, nil
}

func (s *EntityStore) SetMeta(ctx context.Context, kind models.EntityKind, id int64, key, value string) error {
	query := `
		INSERT INTO entity_meta (kind, entity_id, meta_key, meta_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, entity_id, meta_key) DO UPDATE SET
			meta_value = EXCLUDED.meta_value,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, kind, id, key, value)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return fmt.Errorf("failed to set meta on %s %d: %w", kind, id, persistence.ErrEntityNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to set meta on %s %d: %w", kind, id, err)
	}

	return nil
}

func (s *EntityStore) GetMeta(ctx context.Context, kind models.EntityKind, id int64, key string) (string, bool, error) {
	var value string

	err := s.db.QueryRowContext(ctx,
		"SELECT meta_value FROM entity_meta WHERE kind = $1 AND entity_id = $2 AND meta_key = $3",
		kind, id, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("failed to read meta of %s %d: %w", kind, id, err)
	}

	return value, true, nil
}
