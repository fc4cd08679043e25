// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/autoflow/pkg/actions/sendemail"
	"github.com/dukex/autoflow/pkg/actions/sendwebhook"
	"github.com/dukex/autoflow/pkg/actions/updatemeta"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/mail"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/registry"
	"github.com/dukex/autoflow/pkg/triggers"
)

func registerNativeActions(
	reg *registry.ActionRegistry,
	log *slog.Logger,
	mailer mail.Mailer,
	entities persistence.EntityStore,
	settings config.Source,
) {
	reg.Add(sendemail.New(mailer, log))
	reg.Add(sendwebhook.New(settings, log))
	reg.Add(updatemeta.NewPostMeta(entities, log))
	reg.Add(updatemeta.NewUserMeta(entities, log))
}

// NewActionRegistry returns a registry holding every built-in action.
func NewActionRegistry(
	log *slog.Logger,
	mailer mail.Mailer,
	entities persistence.EntityStore,
	settings config.Source,
) *registry.ActionRegistry {
	reg := registry.NewActionRegistry(log)

	registerNativeActions(reg, log, mailer, entities, settings)

	return reg
}

func NewConditionEvaluator() *conditions.Evaluator {
	return conditions.NewEvaluator(conditions.Defaults()...)
}

func NewTriggerCatalog() *triggers.Catalog {
	return triggers.NewCatalog(triggers.Defaults()...)
}
