package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

type LogRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries []models.LogEntry
}

func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

func (r *LogRepository) Insert(_ context.Context, entry *models.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.entries = append(r.entries, *entry)

	return nil
}

func (r *LogRepository) Query(_ context.Context, filter persistence.LogFilter) (persistence.LogPage, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*models.LogEntry, 0)

	for i := range r.entries {
		entry := r.entries[i]

		if filter.WorkflowID != "" && entry.WorkflowID != filter.WorkflowID {
			continue
		}

		if filter.Level != "" && entry.Level != filter.Level {
			continue
		}

		matches = append(matches, &entry)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}

		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	page := persistence.LogPage{Total: int64(len(matches)), Items: []*models.LogEntry{}}

	offset := filter.Offset()
	if offset < len(matches) {
		page.Items = matches[offset:min(offset+filter.PerPage, len(matches))]
	}

	return page, nil
}

func (r *LogRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]

	var deleted int64

	for _, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			deleted++

			continue
		}

		kept = append(kept, entry)
	}

	r.entries = kept

	return deleted, nil
}
