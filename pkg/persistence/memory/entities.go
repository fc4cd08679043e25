package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

type entityKey struct {
	kind models.EntityKind
	id   int64
}

// EntityStore holds host entities and their metadata.
type EntityStore struct {
	mu       sync.RWMutex
	entities map[entityKey]map[string]string
}

func NewEntityStore() *EntityStore {
	return &EntityStore{entities: make(map[entityKey]map[string]string)}
}

// Register makes an entity known to the store.
func (s *EntityStore) Register(kind models.EntityKind, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey{kind: kind, id: id}
	if _, ok := s.entities[key]; !ok {
		s.entities[key] = make(map[string]string)
	}
}

func (s *EntityStore) Exists(_ context.Context, kind models.EntityKind, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entities[entityKey{kind: kind, id: id}]

	return ok, nil
}

func (s *EntityStore) SetMeta(_ context.Context, kind models.EntityKind, id int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.entities[entityKey{kind: kind, id: id}]
	if !ok {
		return fmt.Errorf("failed to set meta on %s %d: %w", kind, id, persistence.ErrEntityNotFound)
	}

	meta[key] = value

	return nil
}

func (s *EntityStore) GetMeta(_ context.Context, kind models.EntityKind, id int64, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entities[entityKey{kind: kind, id: id}][key]

	return value, ok, nil
}
