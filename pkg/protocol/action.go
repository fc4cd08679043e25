// Package protocol defines the contracts implemented by pluggable actions and
// condition types.
package protocol

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
)

// Action is a unit of work with side effects, identified by its slug.
//
// Expected failures (bad input, unreachable endpoint, missing entity) are reported
// through models.Failure. A non-nil error signals a fault the caller must contain.
type Action interface {
	Slug() string
	Label() string
	// Group is used to present actions together; it has no behavioral meaning.
	Group() string
	// ConfigSchema is a JSON-schema document describing the accepted config.
	ConfigSchema() map[string]any
	Execute(ctx context.Context, config map[string]any, payload map[string]any) (models.ActionResult, error)
}
