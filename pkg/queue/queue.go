// Package queue implements the durable job queue that decouples trigger dispatch
// from workflow execution. Storage and atomicity belong to the repository.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// Queue applies the job lifecycle on top of a persistence.QueueRepository.
type Queue struct {
	repo     persistence.QueueRepository
	settings config.Source
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Queue)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

func New(repo persistence.QueueRepository, settings config.Source, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		repo:     repo,
		settings: settings,
		logger:   logger.With("module", "queue"),
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Push enqueues a snapshot of payload for workflowID, due after delay. The job's
// max attempts are the current max_retries setting.
func (q *Queue) Push(ctx context.Context, workflowID string, payload map[string]any, delay time.Duration) (int64, error) {
	settings, err := q.settings.Settings(ctx)
	if err != nil {
		q.logger.WarnContext(ctx, "failed to read settings, using defaults", "error", err)

		settings = config.Defaults()
	}

	settings = settings.Sanitize()

	snapshot, err := models.EncodePayload(payload)
	if err != nil {
		return 0, err
	}

	now := q.now()

	job := &models.Job{
		WorkflowID:  workflowID,
		Payload:     snapshot,
		Status:      models.JobStatusPending,
		Attempts:    0,
		MaxAttempts: settings.MaxRetries,
		ScheduledAt: now.Add(max(delay, 0)),
		CreatedAt:   now,
	}

	id, err := q.repo.Insert(ctx, job)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue workflow %s: %w", workflowID, err)
	}

	return id, nil
}

// Claim atomically takes up to limit due jobs and marks them processing.
func (q *Queue) Claim(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		return []*models.Job{}, nil
	}

	jobs, err := q.repo.ClaimPending(ctx, q.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	return jobs, nil
}

func (q *Queue) Complete(ctx context.Context, id int64) error {
	return q.repo.MarkCompleted(ctx, id, q.now())
}

// Fail records a failed attempt and returns the job's new status.
func (q *Queue) Fail(ctx context.Context, id int64) (models.JobStatus, error) {
	return q.repo.MarkFailed(ctx, id)
}

// Purge deletes completed and failed jobs created more than olderThanDays days ago.
func (q *Queue) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := q.now().AddDate(0, 0, -max(olderThanDays, 0))

	deleted, err := q.repo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	q.logger.InfoContext(ctx, "purged finished jobs", "deleted", deleted, "older_than_days", olderThanDays)

	return deleted, nil
}

func (q *Queue) Get(ctx context.Context, id int64) (*models.Job, error) {
	return q.repo.Get(ctx, id)
}

// Stats counts jobs per status; statuses without jobs report zero.
func (q *Queue) Stats(ctx context.Context) (map[models.JobStatus]int64, error) {
	counts, err := q.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusProcessing,
		models.JobStatusCompleted,
		models.JobStatusFailed,
	} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}

	return counts, nil
}
