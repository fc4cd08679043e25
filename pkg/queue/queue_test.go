package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/mocks"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence/memory"
	"github.com/dukex/autoflow/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newQueue(t *testing.T, settings config.Settings) (*queue.Queue, *clock, *config.Static) {
	t.Helper()

	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	source := config.NewStatic(settings)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return queue.New(memory.NewQueueRepository(), source, logger, queue.WithClock(c.Now)), c, source
}

func TestQueue_PushSnapshotsPayload(t *testing.T) {
	q, _, _ := newQueue(t, config.Defaults())
	ctx := context.Background()

	payload := map[string]any{"post_id": 42, "post_title": "Hello"}

	id, err := q.Push(ctx, "wf-1", payload, 0)
	require.NoError(t, err)

	payload["post_title"] = "Changed"

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, config.DefaultMaxRetries, job.MaxAttempts)
	assert.JSONEq(t, `{"post_id": 42, "post_title": "Hello"}`, string(job.Payload))
}

func TestQueue_MaxAttemptsFrozenAtEnqueue(t *testing.T) {
	q, _, source := newQueue(t, config.Settings{MaxRetries: 2})
	ctx := context.Background()

	id, err := q.Push(ctx, "wf-1", nil, 0)
	require.NoError(t, err)

	source.Set(config.Settings{MaxRetries: 5})

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, job.MaxAttempts)
}

func TestQueue_DelayedJobsWait(t *testing.T) {
	q, c, _ := newQueue(t, config.Defaults())
	ctx := context.Background()

	_, err := q.Push(ctx, "wf-1", nil, time.Minute)
	require.NoError(t, err)

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	c.Advance(time.Minute)

	jobs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusProcessing, jobs[0].Status)
}

func TestQueue_FailUntilFailed(t *testing.T) {
	q, _, _ := newQueue(t, config.Settings{MaxRetries: 3})
	ctx := context.Background()

	id, err := q.Push(ctx, "wf-1", nil, 0)
	require.NoError(t, err)

	expected := []models.JobStatus{models.JobStatusPending, models.JobStatusPending, models.JobStatusFailed}

	for i, want := range expected {
		jobs, err := q.Claim(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1, "claim %d", i+1)

		status, err := q.Fail(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, status)
	}

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Attempts)
}

func TestQueue_ConcurrentClaimsAreExclusive(t *testing.T) {
	q, _, _ := newQueue(t, config.Defaults())
	ctx := context.Background()

	for range 100 {
		_, err := q.Push(ctx, "wf-1", nil, 0)
		require.NoError(t, err)
	}

	var (
		mu    sync.Mutex
		total int
		seen  = make(map[int64]bool)
		wg    sync.WaitGroup
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				jobs, err := q.Claim(ctx, 7)
				if err != nil || len(jobs) == 0 {
					return
				}

				mu.Lock()
				for _, job := range jobs {
					assert.False(t, seen[job.ID], "job %d claimed twice", job.ID)
					seen[job.ID] = true
					total++
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, total)
}

func TestQueue_PurgeAndStats(t *testing.T) {
	q, c, _ := newQueue(t, config.Settings{MaxRetries: 1})
	ctx := context.Background()

	done, err := q.Push(ctx, "wf-1", nil, 0)
	require.NoError(t, err)
	failed, err := q.Push(ctx, "wf-1", nil, 0)
	require.NoError(t, err)

	_, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, done))
	_, err = q.Fail(ctx, failed)
	require.NoError(t, err)

	c.Advance(8 * 24 * time.Hour)

	pending, err := q.Push(ctx, "wf-1", nil, 0)
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[models.JobStatusCompleted])
	assert.Equal(t, int64(1), stats[models.JobStatusFailed])
	assert.Equal(t, int64(1), stats[models.JobStatusPending])
	assert.Equal(t, int64(0), stats[models.JobStatusProcessing])

	deleted, err := q.Purge(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = q.Get(ctx, pending)
	assert.NoError(t, err)
}

func TestQueue_ClaimWithNonPositiveLimit(t *testing.T) {
	q, _, _ := newQueue(t, config.Defaults())

	jobs, err := q.Claim(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestQueue_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storeErr := errors.New("connection refused")

	repo := &mocks.MockQueueRepository{}
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(job *models.Job) bool {
		return job.WorkflowID == "wf-1" && job.MaxAttempts == 3
	})).Return(int64(0), storeErr)
	repo.On("ClaimPending", mock.Anything, mock.Anything, 5).Return(nil, storeErr)
	repo.On("CountByStatus", mock.Anything).Return(map[models.JobStatus]int64{models.JobStatusFailed: 2}, nil)

	q := queue.New(repo, config.NewStatic(config.Defaults()), logger)

	_, err := q.Push(ctx, "wf-1", map[string]any{}, 0)
	require.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "wf-1")

	_, err = q.Claim(ctx, 5)
	require.ErrorIs(t, err, storeErr)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[models.JobStatusFailed])
	assert.Equal(t, int64(0), stats[models.JobStatusPending])

	repo.AssertExpectations(t)
}

type rawSettings config.Settings

func (s rawSettings) Settings(context.Context) (config.Settings, error) {
	return config.Settings(s), nil
}

func TestQueue_PushClampsMaxAttempts(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		maxRetries int
		want       int
	}{
		{name: "zero is raised to one", maxRetries: 0, want: 1},
		{name: "negative is raised to one", maxRetries: -4, want: 1},
		{name: "above the ceiling", maxRetries: 50, want: config.MaxRetriesCeiling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queue.New(memory.NewQueueRepository(), rawSettings{MaxRetries: tt.maxRetries}, logger)

			id, err := q.Push(ctx, "wf-1", nil, 0)
			require.NoError(t, err)

			job, err := q.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.MaxAttempts)

			claimed, err := q.Claim(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, claimed, 1)
		})
	}
}
