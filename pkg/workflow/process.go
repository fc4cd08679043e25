package workflow

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/executionlog"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// queueTrigger labels execution log entries written while processing jobs.
const queueTrigger = "queue"

// ProcessSummary counts the outcome of one ProcessQueue pass.
type ProcessSummary struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// ProcessQueue claims up to queue_batch_size due jobs and executes them. A job is
// completed when its workflow ran, even if an action failed, and failed when
// execution itself faulted. Only claim errors abort the pass.
func (e *Engine) ProcessQueue(ctx context.Context) (ProcessSummary, error) {
	var summary ProcessSummary

	settings := e.currentSettings(ctx)

	jobs, err := e.queue.Claim(ctx, settings.QueueBatchSize)
	if err != nil {
		return summary, fmt.Errorf("failed to claim jobs: %w", err)
	}

	summary.Claimed = len(jobs)

	for _, job := range jobs {
		e.processJob(ctx, job, &summary)
	}

	if summary.Claimed > 0 {
		e.logger.InfoContext(ctx, "Processed queue batch",
			"claimed", summary.Claimed,
			"completed", summary.Completed,
			"retried", summary.Retried,
			"failed", summary.Failed,
		)
	}

	return summary, nil
}

func (e *Engine) processJob(ctx context.Context, job *models.Job, summary *ProcessSummary) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.job",
		attribute.Int64(otelhelper.JobIDKey, job.ID),
		attribute.String(otelhelper.WorkflowIDKey, job.WorkflowID),
		attribute.Int(otelhelper.JobAttemptKey, job.Attempts+1),
	)
	defer span.End()

	runErr := e.runJob(ctx, job)
	if runErr == nil {
		if err := e.queue.Complete(ctx, job.ID); err != nil {
			otelhelper.SetError(span, err)
			e.logger.ErrorContext(ctx, "Failed to complete job", "job_id", job.ID, "error", err)

			return
		}

		summary.Completed++

		return
	}

	otelhelper.SetError(span, runErr)

	e.execLog.Log(ctx, executionlog.Entry{
		WorkflowID: job.WorkflowID,
		Trigger:    queueTrigger,
		Level:      models.LogLevelError,
		Message:    fmt.Sprintf("Queue job %d failed: %s", job.ID, runErr),
		Context:    map[string]any{"job_id": job.ID, "attempt": job.Attempts + 1},
	})

	status, err := e.queue.Fail(ctx, job.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to record job failure", "job_id", job.ID, "error", err)

		return
	}

	if status == models.JobStatusFailed {
		summary.Failed++
	} else {
		summary.Retried++
	}
}

// runJob executes the job's workflow, turning a panic outside the action chain
// into an error.
func (e *Engine) runJob(ctx context.Context, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %d panicked: %v", job.ID, r)
		}
	}()

	payload, err := job.DecodePayload()
	if err != nil {
		return err
	}

	_, err = e.ExecuteWorkflow(ctx, job.WorkflowID, payload)

	return err
}
