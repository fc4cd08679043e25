package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/executionlog"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/queue"
	"github.com/dukex/autoflow/pkg/registry"
	"github.com/dukex/autoflow/pkg/triggers"
	"github.com/dukex/autoflow/pkg/workflow"
)

type RuntimeOptions struct {
	DatabaseURL  string
	QueueURL     string
	SettingsFile string
	SMTPURL      string
}

// Runtime is the fully wired engine with its collaborators.
type Runtime struct {
	Persistence persistence.Persistence
	Settings    config.Source
	Actions     *registry.ActionRegistry
	Conditions  *conditions.Evaluator
	Triggers    *triggers.Catalog
	Queue       *queue.Queue
	Logs        *executionlog.StoreLogger
	Engine      *workflow.Engine
	Validator   *workflow.Validator
	Workflows   *workflow.Repository
}

func NewRuntime(ctx context.Context, logger *slog.Logger, options RuntimeOptions) (*Runtime, error) {
	store, err := NewPersistence(ctx, logger, options.DatabaseURL, options.QueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}

	mailer, err := NewMailer(options.SMTPURL, logger)
	if err != nil {
		_ = store.Close(ctx)

		return nil, fmt.Errorf("failed to configure mailer: %w", err)
	}

	settings := NewSettingsSource(options.SettingsFile)

	runtime := &Runtime{
		Persistence: store,
		Settings:    settings,
		Actions:     NewActionRegistry(logger, mailer, store.EntityStore(), settings),
		Conditions:  NewConditionEvaluator(),
		Triggers:    NewTriggerCatalog(),
		Queue:       queue.New(store.QueueRepository(), settings, logger),
		Logs:        executionlog.NewStoreLogger(store.LogRepository(), settings, logger),
	}

	runtime.Engine = workflow.New(
		store.WorkflowRepository(),
		runtime.Actions,
		runtime.Conditions,
		runtime.Queue,
		settings,
		logger,
		workflow.WithTracer(otelhelper.Tracer()),
		workflow.WithExecutionLog(executionlog.Multi{
			executionlog.NewSlogLogger(logger),
			runtime.Logs,
		}),
	)

	runtime.Validator = workflow.NewValidator(runtime.Triggers, runtime.Conditions, runtime.Actions)
	runtime.Workflows = workflow.NewRepository(store.WorkflowRepository(), runtime.Validator)

	return runtime, nil
}

func (r *Runtime) Close(ctx context.Context) error {
	return r.Persistence.Close(ctx)
}
