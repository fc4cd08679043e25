package conditions

import (
	"testing"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(field, typ, operator, value string) models.ConditionNode {
	return models.RuleNode(models.Rule{Field: field, Type: typ, Operator: operator, Value: value})
}

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := NewEvaluator(Defaults()...)

	payload := map[string]any{
		"post_type": "post",
		"title":     "Hello World",
		"total":     150.0,
		"customer":  map[string]any{"email": "a@example.com", "orders": 3},
	}

	matchingRule := rule("post_type", "string", "equals", "post")
	failingRule := rule("post_type", "string", "equals", "page")

	tests := []struct {
		name  string
		group models.ConditionGroup
		want  bool
	}{
		{
			name:  "empty group is vacuously true",
			group: models.ConditionGroup{Logic: models.LogicOr},
			want:  true,
		},
		{
			name:  "and with all rules true",
			group: models.ConditionGroup{Logic: models.LogicAnd, Rules: []models.ConditionNode{matchingRule, rule("total", "numeric", "greater_than", "100")}},
			want:  true,
		},
		{
			name:  "and with one false rule",
			group: models.ConditionGroup{Logic: models.LogicAnd, Rules: []models.ConditionNode{matchingRule, failingRule}},
			want:  false,
		},
		{
			name:  "or with one true rule",
			group: models.ConditionGroup{Logic: models.LogicOr, Rules: []models.ConditionNode{failingRule, matchingRule}},
			want:  true,
		},
		{
			name:  "or with all rules false",
			group: models.ConditionGroup{Logic: models.LogicOr, Rules: []models.ConditionNode{failingRule, failingRule}},
			want:  false,
		},
		{
			name:  "lowercase or is honored",
			group: models.ConditionGroup{Logic: "or", Rules: []models.ConditionNode{failingRule, matchingRule}},
			want:  true,
		},
		{
			name:  "unknown logic is treated as and",
			group: models.ConditionGroup{Logic: "XOR", Rules: []models.ConditionNode{matchingRule, failingRule}},
			want:  false,
		},
		{
			name: "nested groups",
			group: models.ConditionGroup{
				Logic: models.LogicAnd,
				Rules: []models.ConditionNode{
					matchingRule,
					models.GroupNode(models.ConditionGroup{
						Logic: models.LogicOr,
						Rules: []models.ConditionNode{
							failingRule,
							rule("customer.email", "string", "ends_with", "@example.com"),
						},
					}),
				},
			},
			want: true,
		},
		{
			name:  "dot path into nested payload",
			group: models.ConditionGroup{Rules: []models.ConditionNode{rule("customer.orders", "numeric", "equals", "3")}},
			want:  true,
		},
		{
			name:  "unknown condition type is false",
			group: models.ConditionGroup{Rules: []models.ConditionNode{rule("post_type", "date", "equals", "post")}},
			want:  false,
		},
		{
			name:  "missing field does not match is_empty",
			group: models.ConditionGroup{Rules: []models.ConditionNode{rule("customer.phone.number", "string", "is_empty", "")}},
			want:  false,
		},
		{
			name:  "missing field fails and but not a matching or",
			group: models.ConditionGroup{Logic: models.LogicOr, Rules: []models.ConditionNode{rule("coupon", "string", "is_not_empty", ""), matchingRule}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluator.Evaluate(tt.group, payload))
		})
	}
}

func TestEvaluator_AndEqualsConjunctionOfRules(t *testing.T) {
	evaluator := NewEvaluator(Defaults()...)
	payload := map[string]any{"a": "x", "b": "y"}

	rules := []models.ConditionNode{
		rule("a", "string", "equals", "x"),
		rule("b", "string", "equals", "z"),
		rule("a", "string", "contains", "x"),
	}

	for mask := 0; mask < 1<<len(rules); mask++ {
		var selected []models.ConditionNode

		for i := range rules {
			if mask&(1<<i) != 0 {
				selected = append(selected, rules[i])
			}
		}

		all, anyTrue := true, false

		for _, node := range selected {
			result := evaluator.EvaluateRule(*node.Rule, payload)
			all = all && result
			anyTrue = anyTrue || result
		}

		andResult := evaluator.Evaluate(models.ConditionGroup{Logic: models.LogicAnd, Rules: selected}, payload)
		orResult := evaluator.Evaluate(models.ConditionGroup{Logic: models.LogicOr, Rules: selected}, payload)

		assert.Equal(t, all, andResult, "and mask %b", mask)

		if len(selected) == 0 {
			assert.True(t, orResult)
		} else {
			assert.Equal(t, anyTrue, orResult, "or mask %b", mask)
		}
	}
}

type fakeCondition struct {
	slug  string
	label string
}

func (f fakeCondition) Slug() string  { return f.slug }
func (f fakeCondition) Label() string { return f.label }
func (f fakeCondition) Operators() []protocol.Operator {
	return []protocol.Operator{{Slug: "always", Label: "Always"}}
}

func (f fakeCondition) Evaluate(any, string, string) bool { return true }

func TestEvaluator_RegisterAndDescriptors(t *testing.T) {
	evaluator := NewEvaluator(Defaults()...)

	evaluator.Register(fakeCondition{slug: "date", label: "Date"})
	evaluator.Register(fakeCondition{slug: "string", label: "Replaced"})

	descriptors := evaluator.Descriptors()
	require.Len(t, descriptors, 3)

	assert.Equal(t, "string", descriptors[0].Slug)
	assert.Equal(t, "Replaced", descriptors[0].Label)
	assert.Equal(t, "numeric", descriptors[1].Slug)
	assert.Equal(t, "Number", descriptors[1].Label)
	assert.Equal(t, "date", descriptors[2].Slug)

	condition, ok := evaluator.Get("date")
	require.True(t, ok)
	assert.Equal(t, "Date", condition.Label())

	_, ok = evaluator.Get("missing")
	assert.False(t, ok)
}

func TestEvaluator_EvaluatesDecodedDefinition(t *testing.T) {
	group, err := models.ParseConditionGroup([]byte(`{
		"logic": "and",
		"rules": [
			{"field": "post_type", "value": "post"},
			{"logic": "OR", "rules": [
				{"field": "order.total", "type": "numeric", "operator": "greater_than", "value": 100},
				{"field": "order.status", "operator": "equals", "value": "vip"}
			]}
		]
	}`))
	require.NoError(t, err)

	evaluator := NewEvaluator(Defaults()...)

	assert.True(t, evaluator.Evaluate(group, map[string]any{
		"post_type": "post",
		"order":     map[string]any{"total": 120.5, "status": "new"},
	}))
	assert.False(t, evaluator.Evaluate(group, map[string]any{
		"post_type": "post",
		"order":     map[string]any{"total": 20, "status": "new"},
	}))
}

func TestEvaluator_EvaluateRuleDotPath(t *testing.T) {
	evaluator := NewEvaluator(Defaults()...)

	tests := []struct {
		name    string
		rule    models.Rule
		payload map[string]any
		want    bool
	}{
		{
			name:    "resolves nested role",
			rule:    models.Rule{Field: "user.role", Type: "string", Operator: "equals", Value: "admin"},
			payload: map[string]any{"user": map[string]any{"role": "admin"}},
			want:    true,
		},
		{
			name:    "different role",
			rule:    models.Rule{Field: "user.role", Type: "string", Operator: "equals", Value: "admin"},
			payload: map[string]any{"user": map[string]any{"role": "editor"}},
			want:    false,
		},
		{
			name:    "missing segment against empty text",
			rule:    models.Rule{Field: "user.role", Type: "string", Operator: "equals", Value: ""},
			payload: map[string]any{"post_id": 1},
			want:    false,
		},
		{
			name:    "missing segment against zero",
			rule:    models.Rule{Field: "amount", Type: "numeric", Operator: "equals", Value: "0"},
			payload: map[string]any{"post_id": 1},
			want:    false,
		},
		{
			name:    "missing segment with not_equals",
			rule:    models.Rule{Field: "user.role", Type: "string", Operator: "not_equals", Value: "admin"},
			payload: map[string]any{"user": "jane"},
			want:    false,
		},
		{
			name:    "explicit null is present and empty",
			rule:    models.Rule{Field: "user.role", Type: "string", Operator: "is_empty"},
			payload: map[string]any{"user": map[string]any{"role": nil}},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluator.EvaluateRule(tt.rule, tt.payload))
		})
	}
}
