package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionNode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		isGroup bool
		rule    Rule
	}{
		{
			name:    "group needs logic and rules",
			input:   `{"logic": "or", "rules": []}`,
			isGroup: true,
		},
		{
			name:  "null logic and rules is a rule",
			input: `{"field": "a", "type": "string", "operator": "equals", "value": "x", "logic": null, "rules": null}`,
			rule:  Rule{Field: "a", Type: "string", Operator: "equals", Value: "x"},
		},
		{
			name:  "rules without logic is a rule",
			input: `{"field": "title", "rules": []}`,
			rule:  Rule{Field: "title", Type: "string", Operator: "equals"},
		},
		{
			name:  "defaults type and operator",
			input: `{"field": "post_type", "value": "post"}`,
			rule:  Rule{Field: "post_type", Type: "string", Operator: "equals", Value: "post"},
		},
		{
			name:  "numeric value keeps its literal",
			input: `{"field": "total", "type": "numeric", "operator": "greater_than", "value": 100.50}`,
			rule:  Rule{Field: "total", Type: "numeric", Operator: "greater_than", Value: "100.50"},
		},
		{
			name:  "boolean value",
			input: `{"field": "flag", "value": true}`,
			rule:  Rule{Field: "flag", Type: "string", Operator: "equals", Value: "1"},
		},
		{
			name:  "empty operator falls back to default",
			input: `{"field": "flag", "operator": "", "value": null}`,
			rule:  Rule{Field: "flag", Type: "string", Operator: "equals"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node ConditionNode

			require.NoError(t, json.Unmarshal([]byte(tt.input), &node))
			assert.Equal(t, tt.isGroup, node.IsGroup())

			if tt.isGroup {
				assert.Nil(t, node.Rule)
				assert.Equal(t, LogicOr, node.Group.Logic)

				return
			}

			require.NotNil(t, node.Rule)
			assert.Equal(t, tt.rule, *node.Rule)
		})
	}
}

func TestConditionNode_UnmarshalJSON_Invalid(t *testing.T) {
	var node ConditionNode

	assert.ErrorIs(t, json.Unmarshal([]byte(`"rule"`), &node), ErrInvalidConditionNode)
	assert.Error(t, json.Unmarshal([]byte(`{"field": {"nested": true}}`), &node))
}

func TestParseConditionGroup(t *testing.T) {
	group, err := ParseConditionGroup(nil)
	require.NoError(t, err)
	assert.Empty(t, group.Rules)

	group, err = ParseConditionGroup([]byte(" null "))
	require.NoError(t, err)
	assert.Empty(t, group.Rules)

	group, err = ParseConditionGroup([]byte(`{"logic": " and ", "rules": [
		{"field": "a", "value": "1"},
		{"logic": "OR", "rules": [{"field": "b", "value": "2"}]}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, LogicAnd, group.Logic)
	require.Len(t, group.Rules, 2)
	assert.False(t, group.Rules[0].IsGroup())
	assert.True(t, group.Rules[1].IsGroup())
	assert.Equal(t, "b", group.Rules[1].Group.Rules[0].Rule.Field)

	_, err = ParseConditionGroup([]byte(`{"logic": `))
	assert.Error(t, err)
}

func TestConditionGroup_RoundTripKeepsStructure(t *testing.T) {
	group := ConditionGroup{
		Logic: LogicAnd,
		Rules: []ConditionNode{
			RuleNode(Rule{Field: "a", Type: "string", Operator: "equals", Value: "x"}),
			GroupNode(ConditionGroup{Logic: LogicOr, Rules: []ConditionNode{
				RuleNode(Rule{Field: "b", Type: "numeric", Operator: "less_than", Value: "3"}),
			}}),
		},
	}

	data, err := json.Marshal(group)
	require.NoError(t, err)

	decoded, err := ParseConditionGroup(data)
	require.NoError(t, err)
	assert.Equal(t, group, decoded)
}
