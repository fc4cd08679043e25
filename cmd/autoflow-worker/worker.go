package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/dukex/autoflow/pkg/sources/kafka"
)

const stopTimeout = 30 * time.Second

type WorkerConfig struct {
	Schedule     scheduler.Config
	KafkaBrokers string
	KafkaTopic   string
	OTELEnabled  bool
}

type Worker struct {
	id      string
	runtime *cmd.Runtime
	config  WorkerConfig
	logger  *slog.Logger

	// newSubscriber is replaced in tests.
	newSubscriber func() (message.Subscriber, error)
}

func NewWorker(id string, runtime *cmd.Runtime, logger *slog.Logger, config WorkerConfig) *Worker {
	w := &Worker{
		id:      id,
		runtime: runtime,
		config:  config,
		logger:  logger,
	}

	w.newSubscriber = func() (message.Subscriber, error) {
		return cmd.NewTriggerSubscriber(config.KafkaBrokers, "autoflow-worker", config.OTELEnabled, logger)
	}

	return w
}

// Start runs until SIGINT, SIGTERM or ctx cancellation, then stops the trigger source
// and the scheduler, letting in-flight passes finish.
func (w *Worker) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return w.run(ctx)
}

func (w *Worker) run(ctx context.Context) error {
	sched := scheduler.New(
		w.runtime.Engine,
		w.runtime.Queue,
		w.runtime.Logs,
		w.runtime.Settings,
		w.config.Schedule,
		w.logger,
	)

	if err := sched.Start(ctx); err != nil {
		return err
	}

	var (
		source     *kafka.Source
		subscriber message.Subscriber
	)

	if w.config.KafkaBrokers != "" {
		var err error

		source, subscriber, err = w.startSource(ctx)
		if err != nil {
			_ = sched.Stop(context.Background())

			return err
		}
	}

	w.logger.InfoContext(ctx, "Worker started successfully", "kafka", source != nil)

	<-ctx.Done()
	w.logger.Info("Shutting down worker...")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var errs []error

	if source != nil {
		errs = append(errs, source.Stop(stopCtx), subscriber.Close())
	}

	errs = append(errs, sched.Stop(stopCtx))

	return errors.Join(errs...)
}

func (w *Worker) startSource(ctx context.Context) (*kafka.Source, message.Subscriber, error) {
	subscriber, err := w.newSubscriber()
	if err != nil {
		return nil, nil, err
	}

	source := kafka.New(subscriber, w.runtime.Engine, w.logger,
		kafka.WithTopic(w.config.KafkaTopic),
		kafka.WithPayloadValidator(w.runtime.Triggers),
	)

	if err := source.Start(ctx); err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return source, subscriber, nil
}
