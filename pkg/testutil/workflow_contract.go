package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWorkflowRepositoryTests exercises the behaviour every WorkflowRepository must
// share. newRepo must return an empty repository.
func RunWorkflowRepositoryTests(t *testing.T, newRepo func(t *testing.T) persistence.WorkflowRepository) {
	t.Helper()

	t.Run("save assigns id and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		workflow := CreateTestWorkflow(WithConditions(models.LogicOr,
			models.Rule{Field: "post_type", Type: "string", Operator: "equals", Value: "post"},
		))
		workflow.ID = ""

		require.NoError(t, repo.Save(ctx, workflow))
		assert.NotEmpty(t, workflow.ID)
		assert.False(t, workflow.CreatedAt.IsZero())

		stored, err := repo.GetByID(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.Name, stored.Name)
		assert.Equal(t, workflow.Trigger, stored.Trigger)
		assert.Equal(t, workflow.Conditions, stored.Conditions)
		assert.Equal(t, workflow.Actions, stored.Actions)
		assert.True(t, stored.Enabled)
	})

	t.Run("get unknown workflow", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByID(context.Background(), "0198c1c4-0000-7000-8000-000000000000")
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	})

	t.Run("find enabled by trigger", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := CreateTestWorkflow()
		second := CreateTestWorkflow()
		disabled := CreateTestWorkflow(WithDisabled())
		other := CreateTestWorkflow(WithTrigger("user_registered"))

		for i, workflow := range []*models.Workflow{first, second, disabled, other} {
			workflow.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
			require.NoError(t, repo.Save(ctx, workflow))
		}

		ids, err := repo.FindEnabledByTrigger(ctx, "post_published")
		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, second.ID}, ids)

		ids, err = repo.FindEnabledByTrigger(ctx, "comment_posted")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("find by webhook token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		token := "tok_0123456789abcdefghijklmnopqrstuv"
		workflow := CreateTestWorkflow(WithTrigger("inbound_webhook"), WithWebhookToken(token))
		require.NoError(t, repo.Save(ctx, workflow))
		require.NoError(t, repo.Save(ctx, CreateTestWorkflow()))

		found, err := repo.FindByWebhookToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, workflow.ID, found.ID)

		_, err = repo.FindByWebhookToken(ctx, "unknown")
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

		_, err = repo.FindByWebhookToken(ctx, "")
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	})

	t.Run("save updates and delete removes", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		workflow := CreateTestWorkflow()
		require.NoError(t, repo.Save(ctx, workflow))

		workflow.Name = "Renamed workflow"
		workflow.Enabled = false
		require.NoError(t, repo.Save(ctx, workflow))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Renamed workflow", all[0].Name)
		assert.False(t, all[0].Enabled)

		require.NoError(t, repo.Delete(ctx, workflow.ID))

		_, err = repo.GetByID(ctx, workflow.ID)
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, workflow.ID), persistence.ErrWorkflowNotFound)
	})
}

// RunLogRepositoryTests exercises the behaviour every LogRepository must share.
func RunLogRepositoryTests(t *testing.T, newRepo func(t *testing.T) persistence.LogRepository) {
	t.Helper()

	t.Run("query filters and pages newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Now().UTC().Add(-time.Hour)

		for i := range 5 {
			level := models.LogLevelInfo
			if i%2 == 0 {
				level = models.LogLevelError
			}

			require.NoError(t, repo.Insert(ctx, &models.LogEntry{
				WorkflowID: "wf-1",
				Trigger:    "post_published",
				Level:      level,
				Message:    "entry",
				Context:    map[string]any{"index": float64(i)},
				CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			}))
		}

		require.NoError(t, repo.Insert(ctx, &models.LogEntry{
			WorkflowID: "wf-2",
			Level:      models.LogLevelInfo,
			Message:    "other",
			CreatedAt:  base,
		}))

		page, err := repo.Query(ctx, persistence.LogFilter{WorkflowID: "wf-1", PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, float64(4), page.Items[0].Context["index"])
		assert.Equal(t, float64(3), page.Items[1].Context["index"])

		page, err = repo.Query(ctx, persistence.LogFilter{WorkflowID: "wf-1", PerPage: 2, Page: 3})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, float64(0), page.Items[0].Context["index"])

		page, err = repo.Query(ctx, persistence.LogFilter{Level: models.LogLevelError})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)

		page, err = repo.Query(ctx, persistence.LogFilter{Page: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(6), page.Total)
		assert.Empty(t, page.Items)
	})

	t.Run("delete before cutoff", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		require.NoError(t, repo.Insert(ctx, &models.LogEntry{Level: models.LogLevelInfo, Message: "old", CreatedAt: now.Add(-40 * 24 * time.Hour)}))
		require.NoError(t, repo.Insert(ctx, &models.LogEntry{Level: models.LogLevelInfo, Message: "new", CreatedAt: now}))

		deleted, err := repo.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		page, err := repo.Query(ctx, persistence.LogFilter{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "new", page.Items[0].Message)
	})
}
