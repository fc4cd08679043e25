package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// QueueRepository serializes every transition behind one mutex, which makes
// ClaimPending exclusive within the process.
type QueueRepository struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*models.Job
}

func NewQueueRepository() *QueueRepository {
	return &QueueRepository{jobs: make(map[int64]*models.Job)}
}

func (r *QueueRepository) Insert(_ context.Context, job *models.Job) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	stored := cloneJob(job)
	stored.ID = r.nextID
	r.jobs[stored.ID] = stored

	return stored.ID, nil
}

func (r *QueueRepository) Get(_ context.Context, id int64) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, persistence.NewJobError("Get", id, persistence.ErrJobNotFound)
	}

	return cloneJob(job), nil
}

func (r *QueueRepository) ClaimPending(_ context.Context, now time.Time, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.Job

	for _, job := range r.jobs {
		if job.Status == models.JobStatusPending && !job.ScheduledAt.After(now) && job.Attempts < job.MaxAttempts {
			due = append(due, job)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ID < due[j].ID
		}

		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*models.Job, 0, len(due))

	for _, job := range due {
		startedAt := now
		job.Status = models.JobStatusProcessing
		job.StartedAt = &startedAt

		claimed = append(claimed, cloneJob(job))
	}

	return claimed, nil
}

func (r *QueueRepository) MarkCompleted(_ context.Context, id int64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return persistence.NewJobError("MarkCompleted", id, persistence.ErrJobNotFound)
	}

	if job.Status.IsTerminal() {
		return nil
	}

	completedAt := now
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &completedAt

	return nil
}

func (r *QueueRepository) MarkFailed(_ context.Context, id int64) (models.JobStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return "", persistence.NewJobError("MarkFailed", id, persistence.ErrJobNotFound)
	}

	if job.Status.IsTerminal() {
		return job.Status, nil
	}

	job.Attempts++
	job.StartedAt = nil

	if job.Attempts >= job.MaxAttempts {
		job.Status = models.JobStatusFailed
	} else {
		job.Status = models.JobStatusPending
	}

	return job.Status, nil
}

func (r *QueueRepository) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64

	for id, job := range r.jobs {
		if job.Status.IsTerminal() && job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			deleted++
		}
	}

	return deleted, nil
}

func (r *QueueRepository) CountByStatus(context.Context) (map[models.JobStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[models.JobStatus]int64)
	for _, job := range r.jobs {
		counts[job.Status]++
	}

	return counts, nil
}

func cloneJob(job *models.Job) *models.Job {
	clone := *job
	clone.Payload = append([]byte(nil), job.Payload...)

	if job.StartedAt != nil {
		startedAt := *job.StartedAt
		clone.StartedAt = &startedAt
	}

	if job.CompletedAt != nil {
		completedAt := *job.CompletedAt
		clone.CompletedAt = &completedAt
	}

	return &clone
}
