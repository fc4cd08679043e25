package mocks

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockAction is a mock implementation of protocol.Action interface. Slug, label
// and group are plain fields so registries can index it without expectations.
type MockAction struct {
	mock.Mock

	SlugValue  string
	LabelValue string
	GroupValue string
}

func NewMockAction(slug string) *MockAction {
	return &MockAction{SlugValue: slug, LabelValue: slug, GroupValue: "Test"}
}

func (m *MockAction) Slug() string {
	return m.SlugValue
}

func (m *MockAction) Label() string {
	return m.LabelValue
}

func (m *MockAction) Group() string {
	return m.GroupValue
}

func (m *MockAction) ConfigSchema() map[string]any {
	return map[string]any{}
}

func (m *MockAction) Execute(ctx context.Context, config map[string]any, payload map[string]any) (models.ActionResult, error) {
	args := m.Called(ctx, config, payload)

	return args.Get(0).(models.ActionResult), args.Error(1)
}
