// Package main provides the autoflow worker: it processes the job queue on a cron
// schedule, purges old jobs and logs, and optionally consumes trigger events from Kafka.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/dukex/autoflow/pkg/sources/kafka"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "autoflow-worker",
		Usage:                 "Process queued workflow executions",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "process-schedule",
				Usage:   "Cron expression for queue processing passes",
				Value:   scheduler.DefaultProcessSpec,
				Sources: cli.EnvVars("PROCESS_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "purge-schedule",
				Usage:   "Cron expression for purging old jobs and logs",
				Value:   scheduler.DefaultPurgeSpec,
				Sources: cli.EnvVars("PURGE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers; enables the trigger consumer",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-topic",
				Usage:   "Kafka topic carrying trigger events",
				Value:   kafka.DefaultTopic,
				Sources: cli.EnvVars("KAFKA_TOPIC"),
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("autoflow-worker").With("worker_id", workerID)

			shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "autoflow-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Initializing autoflow worker")

			runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptionsFrom(command))
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(context.Background()); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			return NewWorker(workerID, runtime, logger, WorkerConfig{
				Schedule: scheduler.Config{
					ProcessSpec: command.String("process-schedule"),
					PurgeSpec:   command.String("purge-schedule"),
				},
				KafkaBrokers: command.String("kafka-brokers"),
				KafkaTopic:   command.String("kafka-topic"),
				OTELEnabled:  command.Bool("otel-enabled"),
			}).Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
