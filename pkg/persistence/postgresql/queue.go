package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

const jobColumns = `id, workflow_id, payload, status, attempts, max_attempts, scheduled_at, started_at, completed_at, created_at`

// QueueRepository stores jobs in workflow_jobs. Claims lock rows with
// FOR UPDATE SKIP LOCKED, so concurrent workers never receive the same job.
type QueueRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewQueueRepository(db *sql.DB, logger *slog.Logger) *QueueRepository {
	return &QueueRepository{db: db, logger: logger}
}

func (r *QueueRepository) Insert(ctx context.Context, job *models.Job) (int64, error) {
	query := `
		INSERT INTO workflow_jobs (workflow_id, payload, status, attempts, max_attempts, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	payload := []byte(job.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var id int64

	err := r.db.QueryRowContext(ctx, query,
		job.WorkflowID,
		payload,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.ScheduledAt,
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}

	return id, nil
}

func (r *QueueRepository) Get(ctx context.Context, id int64) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM workflow_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewJobError("Get", id, persistence.ErrJobNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	return job, nil
}

func (r *QueueRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	query := `
		UPDATE workflow_jobs
		SET status = 'processing', started_at = $1
		WHERE id IN (
			SELECT id
			FROM workflow_jobs
			WHERE status = 'pending'
			  AND scheduled_at <= $1
			  AND attempts < max_attempts
			ORDER BY scheduled_at, id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	jobs := make([]*models.Job, 0, limit)

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		jobs = append(jobs, job)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating claimed jobs: %w", err)
	}

	// RETURNING does not preserve the subquery order.
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].ScheduledAt.Equal(jobs[j].ScheduledAt) {
			return jobs[i].ID < jobs[j].ID
		}

		return jobs[i].ScheduledAt.Before(jobs[j].ScheduledAt)
	})

	return jobs, nil
}

func (r *QueueRepository) MarkCompleted(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE workflow_jobs
		SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return persistence.NewJobError("MarkCompleted", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		_, err := r.status(ctx, "MarkCompleted", id)

		return err
	}

	return nil
}

func (r *QueueRepository) MarkFailed(ctx context.Context, id int64) (models.JobStatus, error) {
	query := `
		UPDATE workflow_jobs
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
		    started_at = NULL
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
		RETURNING status
	`

	var status models.JobStatus

	err := r.db.QueryRowContext(ctx, query, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return r.status(ctx, "MarkFailed", id)
	}

	if err != nil {
		return "", persistence.NewJobError("MarkFailed", id, err)
	}

	return status, nil
}

// status reads the current status of a job that an update left untouched.
func (r *QueueRepository) status(ctx context.Context, op string, id int64) (models.JobStatus, error) {
	var status models.JobStatus

	err := r.db.QueryRowContext(ctx, "SELECT status FROM workflow_jobs WHERE id = $1", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", persistence.NewJobError(op, id, persistence.ErrJobNotFound)
	}

	if err != nil {
		return "", persistence.NewJobError(op, id, err)
	}

	return status, nil
}

func (r *QueueRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM workflow_jobs WHERE status IN ('completed', 'failed') AND created_at < $1",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

func (r *QueueRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM workflow_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	counts := make(map[models.JobStatus]int64)

	for rows.Next() {
		var (
			status models.JobStatus
			count  int64
		)

		err := rows.Scan(&status, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}

		counts[status] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating job counts: %w", err)
	}

	return counts, nil
}

func scanJob(row scanner) (*models.Job, error) {
	var (
		job         models.Job
		payload     []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.WorkflowID,
		&payload,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.ScheduledAt,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Payload = payload
	job.ScheduledAt = job.ScheduledAt.UTC()
	job.CreatedAt = job.CreatedAt.UTC()

	if startedAt.Valid {
		t := startedAt.Time.UTC()
		job.StartedAt = &t
	}

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}

	return &job, nil
}
