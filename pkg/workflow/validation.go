package workflow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/protocol"
	"github.com/go-playground/validator/v10"
)

var webhookTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32,64}$`)

// ValidationError lists every problem found in a workflow definition.
type ValidationError struct {
	WorkflowID string
	Problems   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow %q is invalid: %s", e.WorkflowID, strings.Join(e.Problems, "; "))
}

type TriggerCatalog interface {
	Has(slug string) bool
}

type ConditionTypes interface {
	Get(slug string) (protocol.Condition, bool)
}

type ActionConfigs interface {
	Get(slug string) (protocol.Action, bool)
	ValidateConfig(slug string, config map[string]any) error
}

// Validator checks definitions before they are stored. The engine itself never
// rejects a definition; unknown references are skipped at execution time.
type Validator struct {
	validate   *validator.Validate
	triggers   TriggerCatalog
	conditions ConditionTypes
	actions    ActionConfigs
}

func NewValidator(triggers TriggerCatalog, conditions ConditionTypes, actions ActionConfigs) *Validator {
	return &Validator{
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		triggers:   triggers,
		conditions: conditions,
		actions:    actions,
	}
}

// Validate returns a *ValidationError when the definition has problems.
func (v *Validator) Validate(workflow *models.Workflow) error {
	var problems []string

	if err := v.validate.Struct(workflow); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("failed to validate workflow: %w", err)
		}

		for _, fieldError := range fieldErrors {
			problems = append(problems, fmt.Sprintf("field %s failed on %s", fieldError.Namespace(), fieldError.Tag()))
		}
	}

	if workflow.Trigger != "" && !v.triggers.Has(workflow.Trigger) {
		problems = append(problems, fmt.Sprintf("unknown trigger %q", workflow.Trigger))
	}

	if workflow.WebhookToken != "" && !webhookTokenPattern.MatchString(workflow.WebhookToken) {
		problems = append(problems, "webhook_token must be 32 to 64 characters of [A-Za-z0-9_-]")
	}

	problems = append(problems, v.groupProblems(workflow.Conditions, "conditions")...)

	for index, invocation := range workflow.Actions {
		if invocation.Type == "" {
			continue
		}

		if _, ok := v.actions.Get(invocation.Type); !ok {
			problems = append(problems, fmt.Sprintf("actions[%d]: unknown action %q", index, invocation.Type))

			continue
		}

		if err := v.actions.ValidateConfig(invocation.Type, invocation.Config); err != nil {
			problems = append(problems, fmt.Sprintf("actions[%d]: %s", index, err))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{WorkflowID: workflow.ID, Problems: problems}
	}

	return nil
}

func (v *Validator) groupProblems(group models.ConditionGroup, path string) []string {
	var problems []string

	logic := models.Logic(strings.ToUpper(string(group.Logic)))
	if group.Logic != "" && logic != models.LogicAnd && logic != models.LogicOr {
		problems = append(problems, fmt.Sprintf("%s: logic %q is treated as AND", path, group.Logic))
	}

	for index, node := range group.Rules {
		nodePath := fmt.Sprintf("%s.rules[%d]", path, index)

		if node.IsGroup() {
			problems = append(problems, v.groupProblems(*node.Group, nodePath)...)

			continue
		}

		if node.Rule == nil {
			problems = append(problems, nodePath+": empty node")

			continue
		}

		problems = append(problems, v.ruleProblems(*node.Rule, nodePath)...)
	}

	return problems
}

func (v *Validator) ruleProblems(rule models.Rule, path string) []string {
	var problems []string

	if rule.Field == "" {
		problems = append(problems, path+": field is required")
	}

	condition, ok := v.conditions.Get(rule.Type)
	if !ok {
		return append(problems, fmt.Sprintf("%s: unknown condition type %q", path, rule.Type))
	}

	for _, operator := range condition.Operators() {
		if operator.Slug == rule.Operator {
			return problems
		}
	}

	return append(problems, fmt.Sprintf("%s: operator %q is not supported by %q", path, rule.Operator, rule.Type))
}
