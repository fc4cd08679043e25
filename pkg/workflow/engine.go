// Package workflow ties triggers, conditions, actions and the job queue together.
//
// HandleTrigger dispatches an event to every enabled workflow bound to it, either
// executing inline (sync mode) or enqueueing a job (async mode). ProcessQueue drains
// due jobs. Action failures and faults never escape ExecuteWorkflow; only
// infrastructure errors are returned to callers.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/executionlog"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrActionPanic wraps a panic recovered from an action.
var ErrActionPanic = errors.New("action panicked")

// Definitions is the read side of the workflow definition store.
type Definitions interface {
	FindEnabledByTrigger(ctx context.Context, trigger string) ([]string, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
}

type Actions interface {
	Get(slug string) (protocol.Action, bool)
}

type Conditions interface {
	Evaluate(group models.ConditionGroup, payload map[string]any) bool
}

// JobQueue is the subset of *queue.Queue the engine drives.
type JobQueue interface {
	Push(ctx context.Context, workflowID string, payload map[string]any, delay time.Duration) (int64, error)
	Claim(ctx context.Context, limit int) ([]*models.Job, error)
	Complete(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64) (models.JobStatus, error)
}

type Engine struct {
	definitions Definitions
	actions     Actions
	conditions  Conditions
	queue       JobQueue
	settings    config.Source
	execLog     executionlog.Logger
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Engine)

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithExecutionLog replaces the default slog-backed execution log sink.
func WithExecutionLog(execLog executionlog.Logger) Option {
	return func(e *Engine) {
		e.execLog = execLog
	}
}

func New(
	definitions Definitions,
	actions Actions,
	conditions Conditions,
	queue JobQueue,
	settings config.Source,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		definitions: definitions,
		actions:     actions,
		conditions:  conditions,
		queue:       queue,
		settings:    settings,
		logger:      logger.With("module", "workflow_engine"),
		tracer:      otelhelper.Tracer(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	if engine.execLog == nil {
		engine.execLog = executionlog.NewSlogLogger(logger)
	}

	return engine
}

// DispatchResult lists what HandleTrigger did with each matched workflow.
type DispatchResult struct {
	Trigger  string                             `json:"trigger"`
	Matched  int                                `json:"matched"`
	Executed map[string]*models.ExecutionReport `json:"executed,omitempty"`
	Enqueued map[string]int64                   `json:"enqueued,omitempty"`
}

// HandleTrigger dispatches payload to every enabled workflow bound to slug.
func (e *Engine) HandleTrigger(ctx context.Context, slug string, payload map[string]any) error {
	_, err := e.Dispatch(ctx, slug, payload)

	return err
}

// Dispatch is HandleTrigger with a per-workflow account. The execution mode is
// re-read for every workflow, so one dispatch may mix sync and async. Errors from
// individual workflows are joined; the remaining workflows are still dispatched.
func (e *Engine) Dispatch(ctx context.Context, slug string, payload map[string]any) (DispatchResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.dispatch",
		attribute.String(otelhelper.TriggerSlugKey, slug),
	)
	defer span.End()

	result := DispatchResult{
		Trigger:  slug,
		Executed: make(map[string]*models.ExecutionReport),
		Enqueued: make(map[string]int64),
	}

	ids, err := e.definitions.FindEnabledByTrigger(ctx, slug)
	if err != nil {
		otelhelper.SetError(span, err)

		return result, fmt.Errorf("failed to find workflows for trigger %s: %w", slug, err)
	}

	result.Matched = len(ids)

	if len(ids) == 0 {
		e.logger.DebugContext(ctx, "No workflows bound to trigger", "trigger", slug)

		return result, nil
	}

	var errs []error

	for _, id := range ids {
		settings := e.currentSettings(ctx)

		if settings.ExecutionMode == config.ModeSync {
			report, err := e.ExecuteWorkflow(ctx, id, payload)
			if err != nil {
				errs = append(errs, err)

				continue
			}

			result.Executed[id] = report

			continue
		}

		jobID, err := e.queue.Push(ctx, id, payload, 0)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to enqueue workflow", "workflow_id", id, "trigger", slug, "error", err)
			errs = append(errs, err)

			continue
		}

		result.Enqueued[id] = jobID

		e.execLog.Log(ctx, executionlog.Entry{
			WorkflowID: id,
			Trigger:    slug,
			Level:      models.LogLevelInfo,
			Message:    "Workflow queued for async execution.",
			Context:    map[string]any{"job_id": jobID},
		})
	}

	err = errors.Join(errs...)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

// ExecuteWorkflow loads the definition, evaluates its conditions and runs its
// actions in order, stopping at the first failure or fault. A missing or disabled
// workflow is skipped. The error is non-nil only when the definition store fails.
func (e *Engine) ExecuteWorkflow(ctx context.Context, id string, payload map[string]any) (*models.ExecutionReport, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, id),
	)
	defer span.End()

	report := &models.ExecutionReport{WorkflowID: id, Steps: []models.StepReport{}}

	if payload == nil {
		payload = map[string]any{}
	}

	workflow, err := e.definitions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			e.execLog.Log(ctx, executionlog.Entry{
				WorkflowID: id,
				Level:      models.LogLevelWarning,
				Message:    "Workflow not found, skipping execution.",
			})

			report.Skipped = models.SkipWorkflowNotFound

			return report, nil
		}

		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	report.Trigger = workflow.Trigger
	span.SetAttributes(
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.TriggerSlugKey, workflow.Trigger),
	)

	if !workflow.Enabled {
		e.execLog.Log(ctx, executionlog.Entry{
			WorkflowID: id,
			Trigger:    workflow.Trigger,
			Level:      models.LogLevelInfo,
			Message:    "Workflow is disabled, skipping execution.",
		})

		report.Skipped = models.SkipWorkflowDisabled

		return report, nil
	}

	if !e.conditions.Evaluate(workflow.Conditions, payload) {
		e.execLog.Log(ctx, executionlog.Entry{
			WorkflowID: id,
			Trigger:    workflow.Trigger,
			Level:      models.LogLevelInfo,
			Message:    "Conditions not met, skipping execution.",
			Context:    map[string]any{"payload": payload},
		})

		report.Skipped = models.SkipConditionsNotMet

		return report, nil
	}

	report.ConditionsMet = true

	for index, invocation := range workflow.Actions {
		step := e.runAction(ctx, workflow, index, invocation, payload)
		report.Steps = append(report.Steps, step)

		if step.Status == models.StepFailed || step.Status == models.StepFaulted {
			report.Halted = true

			break
		}
	}

	return report, nil
}

func (e *Engine) runAction(
	ctx context.Context,
	workflow *models.Workflow,
	index int,
	invocation models.ActionInvocation,
	payload map[string]any,
) models.StepReport {
	step := models.StepReport{Index: index, Action: invocation.Type}

	entry := executionlog.Entry{WorkflowID: workflow.ID, Trigger: workflow.Trigger}

	action, ok := e.actions.Get(invocation.Type)
	if !ok {
		entry.Level = models.LogLevelWarning
		entry.Message = fmt.Sprintf("Unknown action type: %s", invocation.Type)
		e.execLog.Log(ctx, entry)

		step.Status = models.StepSkipped

		return step
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.action",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ActionTypeKey, invocation.Type),
		attribute.Int(otelhelper.ActionIndexKey, index),
	)
	defer span.End()

	actionConfig := maps.Clone(invocation.Config)
	if actionConfig == nil {
		actionConfig = map[string]any{}
	}

	result, err := invoke(ctx, action, actionConfig, payload)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.ActionTypeKey, invocation.Type))

		entry.Level = models.LogLevelError
		entry.Message = fmt.Sprintf("Action %q threw an exception: %s", invocation.Type, err)
		entry.Context = map[string]any{"action_index": index}
		e.execLog.Log(ctx, entry)

		step.Status = models.StepFaulted
		step.Error = err.Error()

		return step
	}

	step.Result = &result
	entry.Context = result.Data()

	if !result.IsSuccess() {
		otelhelper.SetError(span, errors.New(result.Message()))

		entry.Level = models.LogLevelError
		entry.Message = fmt.Sprintf("Action %q failed: %s", invocation.Type, result.Message())
		e.execLog.Log(ctx, entry)

		step.Status = models.StepFailed

		return step
	}

	entry.Level = models.LogLevelInfo
	entry.Message = fmt.Sprintf("Action %q succeeded: %s", invocation.Type, result.Message())
	e.execLog.Log(ctx, entry)

	step.Status = models.StepSucceeded

	return step
}

// invoke runs the action, converting a panic into an ErrActionPanic error.
func invoke(ctx context.Context, action protocol.Action, config, payload map[string]any) (result models.ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrActionPanic, action.Slug(), r)
		}
	}()

	return action.Execute(ctx, config, payload)
}

func (e *Engine) currentSettings(ctx context.Context) config.Settings {
	settings, err := e.settings.Settings(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to read settings, using defaults", "error", err)

		return config.Defaults()
	}

	return settings.Sanitize()
}
