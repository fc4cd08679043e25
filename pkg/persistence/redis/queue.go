package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// QueueRepository keeps each job in a hash and indexes due work in a sorted set
// scored by scheduled time. Members are zero padded IDs so ties order by ID.
//
// The claim, purge and count scripts derive job keys from the prefix inside Lua,
// so the repository needs a single-node client; Redis Cluster is not supported.
type QueueRepository struct {
	client *goredis.Client
	prefix string
}

func NewQueueRepository(client *goredis.Client, prefix string) *QueueRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &QueueRepository{client: client, prefix: prefix}
}

func (r *QueueRepository) sequenceKey() string { return r.prefix + ":jobs:seq" }
func (r *QueueRepository) pendingKey() string  { return r.prefix + ":jobs:pending" }
func (r *QueueRepository) allKey() string      { return r.prefix + ":jobs:all" }
func (r *QueueRepository) jobPrefix() string   { return r.prefix + ":job:" }

func (r *QueueRepository) jobKey(member string) string {
	return r.jobPrefix() + member
}

func member(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func (r *QueueRepository) Insert(ctx context.Context, job *models.Job) (int64, error) {
	id, err := r.client.Incr(ctx, r.sequenceKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate job id: %w", err)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	payload := string(job.Payload)
	if payload == "" {
		payload = "{}"
	}

	m := member(id)

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, r.jobKey(m), map[string]any{
			"id":           id,
			"workflow_id":  job.WorkflowID,
			"payload":      payload,
			"status":       string(job.Status),
			"attempts":     job.Attempts,
			"max_attempts": job.MaxAttempts,
			"scheduled_at": formatTime(job.ScheduledAt),
			"scheduled_ms": job.ScheduledAt.UnixMilli(),
			"created_at":   formatTime(createdAt),
		})

		if job.Status == models.JobStatusPending {
			pipe.ZAdd(ctx, r.pendingKey(), goredis.Z{Score: float64(job.ScheduledAt.UnixMilli()), Member: m})
		}

		pipe.ZAdd(ctx, r.allKey(), goredis.Z{Score: float64(createdAt.UnixMilli()), Member: m})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}

	return id, nil
}

func (r *QueueRepository) Get(ctx context.Context, id int64) (*models.Job, error) {
	job, err := r.load(ctx, member(id))
	if err != nil {
		return nil, persistence.NewJobError("Get", id, err)
	}

	return job, nil
}

func (r *QueueRepository) load(ctx context.Context, m string) (*models.Job, error) {
	fields, err := r.client.HGetAll(ctx, r.jobKey(m)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}

	if len(fields) == 0 {
		return nil, persistence.ErrJobNotFound
	}

	return parseJob(fields)
}

func (r *QueueRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	members, err := claimScript.Run(ctx, r.client,
		[]string{r.pendingKey()},
		now.UnixMilli(), limit, r.jobPrefix(), formatTime(now),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	jobs := make([]*models.Job, 0, len(members))

	for _, m := range members {
		job, err := r.load(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("failed to load claimed job %s: %w", m, err)
		}

		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].ScheduledAt.Equal(jobs[j].ScheduledAt) {
			return jobs[i].ID < jobs[j].ID
		}

		return jobs[i].ScheduledAt.Before(jobs[j].ScheduledAt)
	})

	return jobs, nil
}

func (r *QueueRepository) MarkCompleted(ctx context.Context, id int64, now time.Time) error {
	m := member(id)

	err := completeScript.Run(ctx, r.client, []string{r.jobKey(m), r.pendingKey()}, m, formatTime(now)).Err()
	if errors.Is(err, goredis.Nil) {
		return persistence.NewJobError("MarkCompleted", id, persistence.ErrJobNotFound)
	}

	if err != nil {
		return persistence.NewJobError("MarkCompleted", id, err)
	}

	return nil
}

func (r *QueueRepository) MarkFailed(ctx context.Context, id int64) (models.JobStatus, error) {
	m := member(id)

	status, err := failScript.Run(ctx, r.client, []string{r.jobKey(m), r.pendingKey()}, m).Text()
	if errors.Is(err, goredis.Nil) {
		return "", persistence.NewJobError("MarkFailed", id, persistence.ErrJobNotFound)
	}

	if err != nil {
		return "", persistence.NewJobError("MarkFailed", id, err)
	}

	return models.JobStatus(status), nil
}

func (r *QueueRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := purgeScript.Run(ctx, r.client, []string{r.allKey()}, cutoff.UnixMilli(), r.jobPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}

	return deleted, nil
}

func (r *QueueRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	values, err := countScript.Run(ctx, r.client, []string{r.allKey()}, r.jobPrefix()).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts := make(map[models.JobStatus]int64)

	for i := 0; i+1 < len(values); i += 2 {
		status, _ := values[i].(string)
		count, _ := values[i+1].(int64)
		counts[models.JobStatus(status)] = count
	}

	return counts, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseJob(fields map[string]string) (*models.Job, error) {
	var (
		job models.Job
		err error
	)

	job.ID, err = strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}

	job.WorkflowID = fields["workflow_id"]
	job.Payload = []byte(fields["payload"])
	job.Status = models.JobStatus(fields["status"])

	job.Attempts, err = strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("invalid attempts: %w", err)
	}

	job.MaxAttempts, err = strconv.Atoi(fields["max_attempts"])
	if err != nil {
		return nil, fmt.Errorf("invalid max_attempts: %w", err)
	}

	job.ScheduledAt, err = time.Parse(time.RFC3339Nano, fields["scheduled_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled_at: %w", err)
	}

	job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}

	job.StartedAt, err = optionalTime(fields["started_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid started_at: %w", err)
	}

	job.CompletedAt, err = optionalTime(fields["completed_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid completed_at: %w", err)
	}

	return &job, nil
}

func optionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
