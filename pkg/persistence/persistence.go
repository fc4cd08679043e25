// Package persistence provides the storage abstraction for workflows, the job queue,
// execution logs and host entity metadata.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

// Persistence bundles the repositories of one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	QueueRepository() QueueRepository
	LogRepository() LogRepository
	EntityStore() EntityStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository is the definition store. GetByID returns ErrWorkflowNotFound
// for unknown IDs.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	FindEnabledByTrigger(ctx context.Context, trigger string) ([]string, error)
	FindByWebhookToken(ctx context.Context, token string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// QueueRepository stores jobs. Implementations must make ClaimPending atomic: a job
// is handed to at most one caller per attempt.
type QueueRepository interface {
	Insert(ctx context.Context, job *models.Job) (int64, error)
	Get(ctx context.Context, id int64) (*models.Job, error)

	// ClaimPending moves up to limit due pending jobs with remaining attempts to
	// processing, oldest scheduled first, and returns them.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.Job, error)

	// MarkCompleted is a no-op for jobs already in a terminal state.
	MarkCompleted(ctx context.Context, id int64, now time.Time) error

	// MarkFailed counts one attempt and returns the resulting status: failed once
	// attempts reach max_attempts, pending otherwise. No-op for terminal jobs.
	MarkFailed(ctx context.Context, id int64) (models.JobStatus, error)

	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error)
}

type LogFilter struct {
	WorkflowID string
	Level      models.LogLevel
	Page       int
	PerPage    int
}

const (
	DefaultLogPerPage = 20
	MaxLogPerPage     = 100
)

// Normalize applies paging defaults.
func (f LogFilter) Normalize() LogFilter {
	if f.Page < 1 {
		f.Page = 1
	}

	if f.PerPage <= 0 {
		f.PerPage = DefaultLogPerPage
	}

	f.PerPage = min(f.PerPage, MaxLogPerPage)

	return f
}

func (f LogFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

type LogPage struct {
	Items []*models.LogEntry `json:"items"`
	Total int64              `json:"total"`
}

// LogRepository stores execution log entries, newest first.
type LogRepository interface {
	Insert(ctx context.Context, entry *models.LogEntry) error
	Query(ctx context.Context, filter LogFilter) (LogPage, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EntityStore is the host content store the meta actions write to.
type EntityStore interface {
	Exists(ctx context.Context, kind models.EntityKind, id int64) (bool, error)
	SetMeta(ctx context.Context, kind models.EntityKind, id int64, key, value string) error
	GetMeta(ctx context.Context, kind models.EntityKind, id int64, key string) (string, bool, error)
}

// PrepareWorkflow assigns a UUIDv7 to new workflows and maintains the timestamps.
func PrepareWorkflow(workflow *models.Workflow, now time.Time) error {
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	return nil
}
