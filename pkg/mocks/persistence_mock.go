// Package mocks provides testify mocks for the persistence and action contracts.
package mocks

import (
	"context"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) FindEnabledByTrigger(ctx context.Context, trigger string) ([]string, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWorkflowRepository) FindByWebhookToken(ctx context.Context, token string) (*models.Workflow, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockQueueRepository is a mock implementation of persistence.QueueRepository interface.
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Insert(ctx context.Context, job *models.Job) (int64, error) {
	args := m.Called(ctx, job)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueueRepository) Get(ctx context.Context, id int64) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockQueueRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockQueueRepository) MarkCompleted(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)

	return args.Error(0)
}

func (m *MockQueueRepository) MarkFailed(ctx context.Context, id int64) (models.JobStatus, error) {
	args := m.Called(ctx, id)

	return args.Get(0).(models.JobStatus), args.Error(1)
}

func (m *MockQueueRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueueRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[models.JobStatus]int64), args.Error(1)
}
