// Package main provides the autoflow command line tool.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "autoflow",
		Usage:                 "Validate, import and run workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewImportCommand(),
			NewDispatchCommand(),
			NewProcessCommand(),
			NewPurgeCommand(),
			NewEmitCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
