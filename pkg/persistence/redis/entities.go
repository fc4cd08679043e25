package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// EntityStore keeps known entities in a set and their metadata in one hash each.
type EntityStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewEntityStore(client goredis.UniversalClient, prefix string) *EntityStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &EntityStore{client: client, prefix: prefix}
}

func (s *EntityStore) setKey() string {
	return s.prefix + ":entities"
}

func (s *EntityStore) metaKey(kind models.EntityKind, id int64) string {
	return fmt.Sprintf("%s:entity:%s:%d:meta", s.prefix, kind, id)
}

func entityMember(kind models.EntityKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// Register makes an entity known to the store.
func (s *EntityStore) Register(ctx context.Context, kind models.EntityKind, id int64) error {
	err := s.client.SAdd(ctx, s.setKey(), entityMember(kind, id)).Err()
	if err != nil {
		return fmt.Errorf("failed to register %s %d: %w", kind, id, err)
	}

	return nil
}

func (s *EntityStore) Exists(ctx context.Context, kind models.EntityKind, id int64) (bool, error) {
	exists, err := s.client.SIsMember(ctx, s.setKey(), entityMember(kind, id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up %s %d: %w", kind, id, err)
	}

	return exists, nil
}

func (s *EntityStore) SetMeta(ctx context.Context, kind models.EntityKind, id int64, key, value string) error {
	exists, err := s.Exists(ctx, kind, id)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("failed to set meta on %s %d: %w", kind, id, persistence.ErrEntityNotFound)
	}

	err = s.client.HSet(ctx, s.metaKey(kind, id), key, value).Err()
	if err != nil {
		return fmt.Errorf("failed to set meta on %s %d: %w", kind, id, err)
	}

	return nil
}

func (s *EntityStore) GetMeta(ctx context.Context, kind models.EntityKind, id int64, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.metaKey(kind, id), key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("failed to read meta of %s %d: %w", kind, id, err)
	}

	return value, true, nil
}
