package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/mail"
	"github.com/dukex/autoflow/pkg/persistence/memory"
	"github.com/dukex/autoflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var (
	ErrNoFiles           = errors.New("no definition files given")
	ErrInvalidDefinition = errors.New("invalid workflow definitions found")
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate workflow definition files (JSON or YAML)",
		ArgsUsage: "<file>...",
		Action: func(_ context.Context, command *cli.Command) error {
			files := command.Args().Slice()
			if len(files) == 0 {
				return ErrNoFiles
			}

			return validateFiles(command.Root().Writer, newOfflineValidator(), files)
		},
	}
}

// newOfflineValidator knows every built-in trigger, condition and action without
// opening a backend.
func newOfflineValidator() *workflow.Validator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	actions := cmd.NewActionRegistry(
		logger,
		mail.NewLogMailer(logger),
		memory.NewEntityStore(),
		config.NewStatic(config.Defaults()),
	)

	return workflow.NewValidator(cmd.NewTriggerCatalog(), cmd.NewConditionEvaluator(), actions)
}

func validateFiles(out io.Writer, validator *workflow.Validator, files []string) error {
	valid, invalid := 0, 0

	_, _ = fmt.Fprintln(out, "Workflow Definition Validation Results:")
	_, _ = fmt.Fprintln(out, "=======================================")

	for _, file := range files {
		_, _ = fmt.Fprintf(out, "\nFile: %s\n", file)

		workflows, err := workflow.LoadDefinitions(file)
		if err != nil {
			_, _ = fmt.Fprintf(out, "  ❌ INVALID: %v\n", err)
			invalid++

			continue
		}

		for _, wf := range workflows {
			_, _ = fmt.Fprintf(out, "  Workflow: %s\n", wf.Name)

			if err := validator.Validate(wf); err != nil {
				var validationErr *workflow.ValidationError
				if errors.As(err, &validationErr) {
					for _, problem := range validationErr.Problems {
						_, _ = fmt.Fprintf(out, "    ❌ %s\n", problem)
					}
				} else {
					_, _ = fmt.Fprintf(out, "    ❌ INVALID: %v\n", err)
				}

				invalid++

				continue
			}

			_, _ = fmt.Fprintln(out, "    ✅ VALID")
			valid++
		}
	}

	_, _ = fmt.Fprintf(out, "\nValidation Summary:\n")
	_, _ = fmt.Fprintf(out, "  Valid: %d\n", valid)
	_, _ = fmt.Fprintf(out, "  Invalid: %d\n", invalid)

	if invalid > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDefinition, invalid)
	}

	return nil
}
