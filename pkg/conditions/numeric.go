package conditions

import (
	"math"

	"github.com/dukex/autoflow/pkg/protocol"
	"github.com/dukex/autoflow/pkg/template"
)

// Epsilon is the float64 machine epsilon (2^-52). Two numbers are equal when their
// absolute difference is strictly below it, so 5.0000001 does not equal 5.0.
const Epsilon = 0x1p-52

// NumericCondition compares both operands as floating point numbers.
type NumericCondition struct{}

func (NumericCondition) Slug() string {
	return "numeric"
}

func (NumericCondition) Label() string {
	return "Number"
}

func (NumericCondition) Evaluate(actualValue any, operator string, expectedValue string) bool {
	actual := template.Float(actualValue)
	expected := template.Float(expectedValue)

	switch operator {
	case "equals":
		return math.Abs(actual-expected) < Epsilon
	case "not_equals":
		return math.Abs(actual-expected) >= Epsilon
	case "greater_than":
		return actual > expected
	case "less_than":
		return actual < expected
	case "greater_than_equal":
		return actual >= expected
	case "less_than_equal":
		return actual <= expected
	default:
		return false
	}
}

func (NumericCondition) Operators() []protocol.Operator {
	return []protocol.Operator{
		{Slug: "equals", Label: "Equals"},
		{Slug: "not_equals", Label: "Does not equal"},
		{Slug: "greater_than", Label: "Greater than"},
		{Slug: "less_than", Label: "Less than"},
		{Slug: "greater_than_equal", Label: "Greater than or equal"},
		{Slug: "less_than_equal", Label: "Less than or equal"},
	}
}
