package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/mocks"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/memory"
	"github.com/dukex/autoflow/pkg/registry"
	"github.com/dukex/autoflow/pkg/testutil"
	"github.com/dukex/autoflow/pkg/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaAction struct {
	*mocks.MockAction
}

func (schemaAction) ConfigSchema() map[string]any {
	return map[string]any{"type": "object", "required": []any{"to"}}
}

func newValidator() *Validator {
	actions := registry.NewActionRegistry(discardLogger())
	actions.Add(schemaAction{mocks.NewMockAction("send_email")})

	return NewValidator(
		triggers.NewCatalog(triggers.Defaults()...),
		conditions.NewEvaluator(conditions.Defaults()...),
		actions,
	)
}

func TestValidator_Validate(t *testing.T) {
	validEmail := testutil.Action("send_email", map[string]any{"to": "a@example.com"})

	tests := []struct {
		name     string
		workflow *models.Workflow
		problems []string
	}{
		{
			name:     "valid",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(validEmail)),
		},
		{
			name:     "missing name",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(validEmail), func(w *models.Workflow) { w.Name = "" }),
			problems: []string{"field Workflow.Name failed on required"},
		},
		{
			name:     "unknown trigger",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(validEmail), testutil.WithTrigger("order_refunded")),
			problems: []string{`unknown trigger "order_refunded"`},
		},
		{
			name:     "unknown action",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(validEmail, testutil.Action("tweet", nil))),
			problems: []string{`actions[1]: unknown action "tweet"`},
		},
		{
			name:     "config schema",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(testutil.Action("send_email", map[string]any{}))),
			problems: []string{"actions[0]: invalid config for action send_email: validation errors: "},
		},
		{
			name: "unknown condition type and operator",
			workflow: testutil.CreateTestWorkflow(
				testutil.WithActions(validEmail),
				testutil.WithConditions(models.LogicAnd,
					models.Rule{Field: "a", Type: "regex", Operator: "matches"},
					models.Rule{Field: "b", Type: "numeric", Operator: "contains"},
				),
			),
			problems: []string{
				`conditions.rules[0]: unknown condition type "regex"`,
				`conditions.rules[1]: operator "contains" is not supported by "numeric"`,
			},
		},
		{
			name: "nested group",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(validEmail), func(w *models.Workflow) {
				w.Conditions = models.ConditionGroup{
					Logic: "or",
					Rules: []models.ConditionNode{
						models.GroupNode(models.ConditionGroup{
							Logic: "XOR",
							Rules: []models.ConditionNode{models.RuleNode(models.Rule{Type: "string", Operator: "equals"})},
						}),
					},
				}
			}),
			problems: []string{
				`conditions.rules[0]: logic "XOR" is treated as AND`,
				"conditions.rules[0].rules[0]: field is required",
			},
		},
		{
			name:     "bad webhook token",
			workflow: testutil.CreateTestWorkflow(testutil.WithActions(validEmail), testutil.WithWebhookToken(strings.Repeat("!", 40))),
			problems: []string{"webhook_token must be 32 to 64 characters of [A-Za-z0-9_-]"},
		},
	}

	validator := newValidator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.workflow)

			if len(tt.problems) == 0 {
				assert.NoError(t, err)

				return
			}

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Len(t, validationErr.Problems, len(tt.problems))

			for i, problem := range tt.problems {
				assert.True(t, strings.HasPrefix(validationErr.Problems[i], problem),
					"problem %q should start with %q", validationErr.Problems[i], problem)
			}
		})
	}
}

func TestRepository_Import(t *testing.T) {
	store := memory.NewWorkflowRepository()
	repo := NewRepository(store, newValidator())
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow(
		testutil.WithActions(testutil.Action("send_email", map[string]any{"to": "a@example.com"})),
		func(w *models.Workflow) { w.ID = "" },
	)

	created, err := repo.Import(ctx, workflow)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	createdAt := created.CreatedAt

	update := *created
	update.Name = "Renamed workflow"
	update.CreatedAt = createdAt.AddDate(1, 0, 0)

	updated, err := repo.Import(ctx, &update)
	require.NoError(t, err)
	assert.Equal(t, createdAt, updated.CreatedAt)

	fetched, err := repo.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed workflow", fetched.Name)

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.Import(ctx, testutil.CreateTestWorkflow(testutil.WithTrigger("nope")))

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err = repo.FetchByID(ctx, created.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
