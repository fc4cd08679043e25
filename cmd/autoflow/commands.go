package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/dukex/autoflow/pkg/sources/kafka"
	"github.com/dukex/autoflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var ErrMissingTrigger = errors.New("trigger slug is required")

// withRuntime opens a Runtime for the duration of fn.
func withRuntime(ctx context.Context, command *cli.Command, fn func(runtime *cmd.Runtime) error) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("autoflow").With("command", command.Name)

	runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptionsFrom(command))
	if err != nil {
		return err
	}

	defer func() {
		if err := runtime.Close(context.Background()); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	return fn(runtime)
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}

func parsePayload(raw string) (map[string]any, error) {
	payload := map[string]any{}
	if raw == "" {
		return payload, nil
	}

	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}

	return payload, nil
}

func payloadFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "payload",
		Usage: "Trigger payload as a JSON object",
		Value: "{}",
	}
}

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Validate and store workflow definition files",
		ArgsUsage: "<file>...",
		Flags:     cmd.RuntimeFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			files := command.Args().Slice()
			if len(files) == 0 {
				return ErrNoFiles
			}

			return withRuntime(ctx, command, func(runtime *cmd.Runtime) error {
				return importFiles(ctx, command.Root().Writer, runtime.Workflows, files)
			})
		},
	}
}

func importFiles(ctx context.Context, out io.Writer, repo *workflow.Repository, files []string) error {
	for _, file := range files {
		workflows, err := workflow.LoadDefinitions(file)
		if err != nil {
			return err
		}

		for _, wf := range workflows {
			stored, err := repo.Import(ctx, wf)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", file, err)
			}

			_, _ = fmt.Fprintf(out, "Imported %s (%s)\n", stored.Name, stored.ID)
		}
	}

	return nil
}

func NewDispatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "dispatch",
		Aliases:   []string{"d"},
		Usage:     "Dispatch a trigger to every enabled workflow bound to it",
		ArgsUsage: "<trigger>",
		Flags:     append([]cli.Flag{payloadFlag()}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			slug := command.Args().First()
			if slug == "" {
				return ErrMissingTrigger
			}

			payload, err := parsePayload(command.String("payload"))
			if err != nil {
				return err
			}

			return withRuntime(ctx, command, func(runtime *cmd.Runtime) error {
				if err := runtime.Triggers.ValidatePayload(slug, payload); err != nil {
					return err
				}

				result, err := runtime.Engine.Dispatch(ctx, slug, payload)
				if err != nil {
					return err
				}

				return printJSON(command.Root().Writer, result)
			})
		},
	}
}

func NewProcessCommand() *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Run one queue processing pass",
		Flags: cmd.RuntimeFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			return withRuntime(ctx, command, func(runtime *cmd.Runtime) error {
				summary, err := runtime.Engine.ProcessQueue(ctx)
				if err != nil {
					return err
				}

				return printJSON(command.Root().Writer, summary)
			})
		},
	}
}

func NewPurgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete finished jobs and execution logs past their retention",
		Flags: cmd.RuntimeFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			return withRuntime(ctx, command, func(runtime *cmd.Runtime) error {
				sched := scheduler.New(
					runtime.Engine,
					runtime.Queue,
					runtime.Logs,
					runtime.Settings,
					scheduler.Config{},
					log.WithModule("autoflow"),
				)

				result, err := sched.RunPurge(ctx)
				if err != nil {
					return err
				}

				return printJSON(command.Root().Writer, result)
			})
		},
	}
}

func NewEmitCommand() *cli.Command {
	return &cli.Command{
		Name:      "emit",
		Usage:     "Publish a trigger event to Kafka for the workers to dispatch",
		ArgsUsage: "<trigger>",
		Flags: []cli.Flag{
			payloadFlag(),
			&cli.StringFlag{
				Name:     "kafka-brokers",
				Usage:    "Comma separated Kafka brokers",
				Required: true,
				Sources:  cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-topic",
				Usage:   "Kafka topic carrying trigger events",
				Value:   kafka.DefaultTopic,
				Sources: cli.EnvVars("KAFKA_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			slug := command.Args().First()
			if slug == "" {
				return ErrMissingTrigger
			}

			payload, err := parsePayload(command.String("payload"))
			if err != nil {
				return err
			}

			if err := cmd.NewTriggerCatalog().ValidatePayload(slug, payload); err != nil {
				return err
			}

			publisher, err := cmd.NewTriggerPublisher(command.String("kafka-brokers"), false, log.WithModule("autoflow"))
			if err != nil {
				return err
			}

			defer func() { _ = publisher.Close() }()

			if err := kafka.NewEmitter(publisher, command.String("kafka-topic")).Emit(ctx, slug, payload); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(command.Root().Writer, "Emitted %s\n", slug)

			return nil
		},
	}
}
