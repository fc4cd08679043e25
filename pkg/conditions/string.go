package conditions

import (
	"strings"

	"github.com/dukex/autoflow/pkg/protocol"
	"github.com/dukex/autoflow/pkg/template"
)

// StringCondition compares both operands as text.
type StringCondition struct{}

func (StringCondition) Slug() string {
	return "string"
}

func (StringCondition) Label() string {
	return "Text"
}

func (StringCondition) Evaluate(actualValue any, operator string, expected string) bool {
	actual := template.Text(actualValue)

	switch operator {
	case "equals":
		return actual == expected
	case "not_equals":
		return actual != expected
	case "contains":
		return strings.Contains(actual, expected)
	case "not_contains":
		return !strings.Contains(actual, expected)
	case "starts_with":
		return strings.HasPrefix(actual, expected)
	case "ends_with":
		// An empty suffix only matches empty text.
		if expected == "" {
			return actual == ""
		}

		return strings.HasSuffix(actual, expected)
	case "is_empty":
		return actual == ""
	case "is_not_empty":
		return actual != ""
	default:
		return false
	}
}

func (StringCondition) Operators() []protocol.Operator {
	return []protocol.Operator{
		{Slug: "equals", Label: "Equals"},
		{Slug: "not_equals", Label: "Does not equal"},
		{Slug: "contains", Label: "Contains"},
		{Slug: "not_contains", Label: "Does not contain"},
		{Slug: "starts_with", Label: "Starts with"},
		{Slug: "ends_with", Label: "Ends with"},
		{Slug: "is_empty", Label: "Is empty"},
		{Slug: "is_not_empty", Label: "Is not empty"},
	}
}
