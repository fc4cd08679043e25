package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("workflow error unwraps to sentinel", func(t *testing.T) {
		err := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		wrapped := fmt.Errorf("execute: %w", err)

		assert.True(t, persistence.IsWorkflowNotFound(wrapped))
		assert.True(t, errors.Is(wrapped, persistence.ErrWorkflowNotFound))
		assert.False(t, persistence.IsJobNotFound(wrapped))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Delete", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("job error contains context", func(t *testing.T) {
		err := persistence.NewJobError("MarkFailed", 42, persistence.ErrJobNotFound)

		assert.True(t, persistence.IsJobNotFound(err))
		assert.Contains(t, err.Error(), "MarkFailed")
		assert.Contains(t, err.Error(), "job 42")

		var jobErr *persistence.JobError

		assert.ErrorAs(t, fmt.Errorf("complete: %w", err), &jobErr)
		assert.Equal(t, int64(42), jobErr.JobID)
	})
}

func TestLogFilter_Normalize(t *testing.T) {
	t.Parallel()

	filter := persistence.LogFilter{}.Normalize()
	assert.Equal(t, 1, filter.Page)
	assert.Equal(t, persistence.DefaultLogPerPage, filter.PerPage)
	assert.Equal(t, 0, filter.Offset())

	filter = persistence.LogFilter{Page: 3, PerPage: 500}.Normalize()
	assert.Equal(t, persistence.MaxLogPerPage, filter.PerPage)
	assert.Equal(t, 200, filter.Offset())
}
