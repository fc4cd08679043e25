// Package main provides the autoflow API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	command := &cli.Command{
		Name:                  "autoflow-api",
		Usage:                 "Serve trigger dispatch, inbound webhooks and execution logs over HTTP",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("autoflow-api")

			shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "autoflow-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Initializing autoflow API", "version", version)

			runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptionsFrom(command))
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			return NewAPI(logger, runtime).Start(ctx, command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
