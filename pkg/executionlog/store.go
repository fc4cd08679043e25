package executionlog

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// StoreLogger persists entries through a LogRepository while enable_logging is on.
type StoreLogger struct {
	repo     persistence.LogRepository
	settings config.Source
	logger   *slog.Logger
	now      func() time.Time
}

func NewStoreLogger(repo persistence.LogRepository, settings config.Source, logger *slog.Logger) *StoreLogger {
	return &StoreLogger{
		repo:     repo,
		settings: settings,
		logger:   logger.With("module", "execution_log_store"),
		now:      time.Now,
	}
}

func (l *StoreLogger) Log(ctx context.Context, entry Entry) {
	settings, err := l.settings.Settings(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to read settings, using defaults", "error", err)

		settings = config.Defaults()
	}

	if !settings.EnableLogging {
		return
	}

	level := entry.Level
	if level == "" {
		level = models.LogLevelInfo
	}

	record := &models.LogEntry{
		WorkflowID: entry.WorkflowID,
		Trigger:    entry.Trigger,
		Level:      level,
		Message:    entry.Message,
		Context:    maps.Clone(entry.Context),
		CreatedAt:  l.now().UTC(),
	}

	if err := l.repo.Insert(ctx, record); err != nil {
		l.logger.ErrorContext(ctx, "Failed to store execution log entry", "message", entry.Message, "error", err)
	}
}

// Purge deletes entries older than the given number of days. Zero deletes every
// entry created before now.
func (l *StoreLogger) Purge(ctx context.Context, days int) (int64, error) {
	cutoff := l.now().UTC().AddDate(0, 0, -max(days, 0))

	deleted, err := l.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge execution logs: %w", err)
	}

	l.logger.InfoContext(ctx, "Purged execution logs", "days", days, "deleted", deleted)

	return deleted, nil
}

// Query returns a page of stored entries, newest first.
func (l *StoreLogger) Query(ctx context.Context, filter persistence.LogFilter) (persistence.LogPage, error) {
	page, err := l.repo.Query(ctx, filter.Normalize())
	if err != nil {
		return persistence.LogPage{}, fmt.Errorf("failed to query execution logs: %w", err)
	}

	return page, nil
}
