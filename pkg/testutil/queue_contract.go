package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewJob builds a pending job for workflowID scheduled at scheduledAt.
func NewJob(workflowID string, scheduledAt time.Time, maxAttempts int) *models.Job {
	return &models.Job{
		WorkflowID:  workflowID,
		Payload:     []byte(`{"post_id":42}`),
		Status:      models.JobStatusPending,
		MaxAttempts: maxAttempts,
		ScheduledAt: scheduledAt,
		CreatedAt:   scheduledAt,
	}
}

// RunQueueRepositoryTests exercises the behaviour every QueueRepository must share.
// newRepo must return an empty repository.
func RunQueueRepositoryTests(t *testing.T, newRepo func(t *testing.T) persistence.QueueRepository) {
	t.Helper()

	t.Run("insert and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		id, err := repo.Insert(ctx, NewJob("wf-1", now, 3))
		require.NoError(t, err)
		assert.Positive(t, id)

		job, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, job.ID)
		assert.Equal(t, "wf-1", job.WorkflowID)
		assert.Equal(t, models.JobStatusPending, job.Status)
		assert.Equal(t, 0, job.Attempts)
		assert.Equal(t, 3, job.MaxAttempts)
		assert.JSONEq(t, `{"post_id":42}`, string(job.Payload))
		assert.WithinDuration(t, now, job.ScheduledAt, time.Millisecond)
		assert.Nil(t, job.StartedAt)

		_, err = repo.Get(ctx, id+1000)
		assert.ErrorIs(t, err, persistence.ErrJobNotFound)
	})

	t.Run("claim picks due jobs oldest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		older, err := repo.Insert(ctx, NewJob("wf-1", now.Add(-2*time.Minute), 3))
		require.NoError(t, err)
		newer, err := repo.Insert(ctx, NewJob("wf-2", now.Add(-time.Minute), 3))
		require.NoError(t, err)
		_, err = repo.Insert(ctx, NewJob("wf-3", now.Add(time.Hour), 3))
		require.NoError(t, err)

		claimed, err := repo.ClaimPending(ctx, now, 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, older, claimed[0].ID)
		assert.Equal(t, models.JobStatusProcessing, claimed[0].Status)
		require.NotNil(t, claimed[0].StartedAt)

		claimed, err = repo.ClaimPending(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, newer, claimed[0].ID)

		claimed, err = repo.ClaimPending(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("claim skips exhausted jobs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		exhausted := NewJob("wf-1", now.Add(-time.Minute), 2)
		exhausted.Attempts = 2
		_, err := repo.Insert(ctx, exhausted)
		require.NoError(t, err)

		claimed, err := repo.ClaimPending(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("fail retries until attempts are exhausted", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		id, err := repo.Insert(ctx, NewJob("wf-1", now.Add(-time.Second), 3))
		require.NoError(t, err)

		for attempt := 1; attempt <= 3; attempt++ {
			claimed, err := repo.ClaimPending(ctx, now, 10)
			require.NoError(t, err)
			require.Len(t, claimed, 1, "attempt %d", attempt)

			status, err := repo.MarkFailed(ctx, id)
			require.NoError(t, err)

			job, err := repo.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, attempt, job.Attempts)
			assert.Equal(t, status, job.Status)
			assert.Nil(t, job.StartedAt)

			if attempt < 3 {
				assert.Equal(t, models.JobStatusPending, status)
			} else {
				assert.Equal(t, models.JobStatusFailed, status)
			}
		}

		claimed, err := repo.ClaimPending(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)

		status, err := repo.MarkFailed(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, status)

		job, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, job.Attempts)
	})

	t.Run("complete is terminal", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		id, err := repo.Insert(ctx, NewJob("wf-1", now.Add(-time.Second), 3))
		require.NoError(t, err)

		_, err = repo.ClaimPending(ctx, now, 10)
		require.NoError(t, err)
		require.NoError(t, repo.MarkCompleted(ctx, id, now))

		status, err := repo.MarkFailed(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, status)
		require.NoError(t, repo.MarkCompleted(ctx, id, now.Add(time.Hour)))

		job, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		assert.Equal(t, 0, job.Attempts)
		require.NotNil(t, job.CompletedAt)
		assert.WithinDuration(t, now, *job.CompletedAt, time.Millisecond)
	})

	t.Run("transitions on unknown jobs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		assert.ErrorIs(t, repo.MarkCompleted(ctx, 999, time.Now()), persistence.ErrJobNotFound)

		_, err := repo.MarkFailed(ctx, 999)
		assert.ErrorIs(t, err, persistence.ErrJobNotFound)
	})

	t.Run("concurrent claims are exclusive", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		const jobs = 40

		for i := range jobs {
			_, err := repo.Insert(ctx, NewJob("wf-1", now.Add(-time.Duration(i+1)*time.Second), 3))
			require.NoError(t, err)
		}

		var (
			mu   sync.Mutex
			seen = make(map[int64]int)
			wg   sync.WaitGroup
		)

		for range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for {
					claimed, err := repo.ClaimPending(ctx, now, 3)
					if !assert.NoError(t, err) || len(claimed) == 0 {
						return
					}

					mu.Lock()
					for _, job := range claimed {
						seen[job.ID]++
					}
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Len(t, seen, jobs)

		for id, count := range seen {
			assert.Equal(t, 1, count, "job %d claimed more than once", id)
		}
	})

	t.Run("delete finished before cutoff", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		old := now.Add(-10 * 24 * time.Hour)

		completedOld, err := repo.Insert(ctx, NewJob("wf-1", old, 1))
		require.NoError(t, err)
		failedOld, err := repo.Insert(ctx, NewJob("wf-1", old.Add(time.Second), 1))
		require.NoError(t, err)
		pendingFuture, err := repo.Insert(ctx, NewJob("wf-1", now.Add(time.Hour), 1))
		require.NoError(t, err)

		recent := NewJob("wf-1", now.Add(-time.Second), 1)
		completedRecent, err := repo.Insert(ctx, recent)
		require.NoError(t, err)

		claimed, err := repo.ClaimPending(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 3)

		require.NoError(t, repo.MarkCompleted(ctx, completedOld, now))
		_, err = repo.MarkFailed(ctx, failedOld)
		require.NoError(t, err)
		require.NoError(t, repo.MarkCompleted(ctx, completedRecent, now))

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[models.JobStatusCompleted])
		assert.Equal(t, int64(1), counts[models.JobStatusFailed])
		assert.Equal(t, int64(1), counts[models.JobStatusPending])

		deleted, err := repo.DeleteFinishedBefore(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		_, err = repo.Get(ctx, completedOld)
		assert.ErrorIs(t, err, persistence.ErrJobNotFound)
		_, err = repo.Get(ctx, pendingFuture)
		require.NoError(t, err)
		_, err = repo.Get(ctx, completedRecent)
		require.NoError(t, err)
	})
}
