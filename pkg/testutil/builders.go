// Package testutil provides test data builders and shared repository test suites.
package testutil

import (
	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates an enabled post_published workflow with one send_email
// action; overrides are applied in order.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Name:    "Notify editors",
		Trigger: "post_published",
		Enabled: true,
		Actions: []models.ActionInvocation{
			{
				Type: "send_email",
				Config: map[string]any{
					"to":      "editor@example.com",
					"subject": "New post: {{post_title}}",
					"body":    "{{post_title}} was published.",
				},
			},
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

func WithTrigger(trigger string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = trigger
	}
}

func WithDisabled() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Enabled = false
	}
}

func WithActions(actions ...models.ActionInvocation) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Actions = actions
	}
}

func WithConditions(logic models.Logic, rules ...models.Rule) func(*models.Workflow) {
	return func(w *models.Workflow) {
		nodes := make([]models.ConditionNode, 0, len(rules))
		for _, rule := range rules {
			nodes = append(nodes, models.RuleNode(rule))
		}

		w.Conditions = models.ConditionGroup{Logic: logic, Rules: nodes}
	}
}

func WithWebhookToken(token string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.WebhookToken = token
	}
}

// Action builds an invocation of the given action slug.
func Action(slug string, config map[string]any) models.ActionInvocation {
	return models.ActionInvocation{Type: slug, Config: config}
}
