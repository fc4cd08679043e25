package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	payload := map[string]any{
		"post_type": "post",
		"user": map[string]any{
			"role": "admin",
			"meta": map[string]string{"nickname": "root"},
		},
		"tags":  []any{"go", map[string]any{"name": "queue"}},
		"count": 3,
	}

	tests := []struct {
		name     string
		path     string
		expected any
		found    bool
	}{
		{name: "top level", path: "post_type", expected: "post", found: true},
		{name: "nested map", path: "user.role", expected: "admin", found: true},
		{name: "string map", path: "user.meta.nickname", expected: "root", found: true},
		{name: "list index", path: "tags.0", expected: "go", found: true},
		{name: "map inside list", path: "tags.1.name", expected: "queue", found: true},
		{name: "missing segment", path: "user.email", expected: nil, found: false},
		{name: "descend into scalar", path: "count.value", expected: nil, found: false},
		{name: "index out of range", path: "tags.5", expected: nil, found: false},
		{name: "empty path", path: "", expected: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := Resolve(payload, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestInterpolate(t *testing.T) {
	payload := map[string]any{
		"user_email": "jane@example.com",
		"post":       map[string]any{"title": "Hello", "id": 42.0},
		"roles":      []any{"editor"},
		"coupon":     nil,
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no placeholders", input: "plain text", expected: "plain text"},
		{name: "simple", input: "{{user_email}}", expected: "jane@example.com"},
		{name: "nested with spaces", input: "Post {{ post.title }} (#{{post.id}})", expected: "Post Hello (#42)"},
		{name: "unresolved left verbatim", input: "{{unknown}}", expected: "{{unknown}}"},
		{name: "partially unresolved path", input: "{{post.author.name}}", expected: "{{post.author.name}}"},
		{name: "composite is json", input: "{{roles}}", expected: `["editor"]`},
		{name: "explicit null", input: "coupon={{coupon}}", expected: "coupon=null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Interpolate(tt.input, payload))
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "1", Text(true))
	assert.Equal(t, "", Text(false))
	assert.Equal(t, "5", Text(5.0))
	assert.Equal(t, "5.25", Text(5.25))
	assert.Equal(t, "7", Text(int64(7)))
	assert.Equal(t, `{"a":1}`, Text(map[string]any{"a": 1}))
}
