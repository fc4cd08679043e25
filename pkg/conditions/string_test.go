package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringCondition_Evaluate(t *testing.T) {
	condition := StringCondition{}

	tests := []struct {
		name     string
		actual   any
		operator string
		expected string
		want     bool
	}{
		{"equals", "post", "equals", "post", true},
		{"equals is case sensitive", "Post", "equals", "post", false},
		{"not equals", "page", "not_equals", "post", true},
		{"contains", "Hello World", "contains", "World", true},
		{"not contains", "Hello World", "not_contains", "Mars", true},
		{"starts with", "Hello World", "starts_with", "Hello", true},
		{"ends with", "Hello World", "ends_with", "Hello", false},
		{"ends with suffix", "Hello World", "ends_with", "World", true},
		{"ends with empty suffix", "Hello World", "ends_with", "", false},
		{"empty ends with empty suffix", "", "ends_with", "", true},
		{"starts with empty prefix", "Hello World", "starts_with", "", true},
		{"nil is empty", nil, "is_empty", "", true},
		{"false is empty", false, "is_empty", "", true},
		{"true casts to 1", true, "equals", "1", true},
		{"number casts to text", 42.0, "equals", "42", true},
		{"integer casts to text", 7, "equals", "7", true},
		{"not empty", "x", "is_not_empty", "", true},
		{"unknown operator", "post", "matches", "post", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, condition.Evaluate(tt.actual, tt.operator, tt.expected))
		})
	}
}

func TestStringCondition_EmptinessIsComplementary(t *testing.T) {
	condition := StringCondition{}

	for _, value := range []any{nil, "", "a", " ", 0, 0.0, true, false, map[string]any{}, []any{"x"}} {
		assert.Equal(t,
			!condition.Evaluate(value, "is_not_empty", ""),
			condition.Evaluate(value, "is_empty", ""),
			"value %#v", value,
		)
	}
}

func TestStringCondition_Descriptor(t *testing.T) {
	condition := StringCondition{}

	assert.Equal(t, "string", condition.Slug())
	assert.Equal(t, "Text", condition.Label())
	assert.Len(t, condition.Operators(), 8)
}
