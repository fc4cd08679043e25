package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

type WorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]models.Workflow
}

func NewWorkflowRepository() *WorkflowRepository {
	return &WorkflowRepository{workflows: make(map[string]models.Workflow)}
}

func (r *WorkflowRepository) GetAll(context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(models.Workflow) bool { return true }), nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) FindEnabledByTrigger(_ context.Context, trigger string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.sorted(func(w models.Workflow) bool { return w.Enabled && w.Trigger == trigger })

	ids := make([]string, 0, len(matches))
	for _, workflow := range matches {
		ids = append(ids, workflow.ID)
	}

	return ids, nil
}

func (r *WorkflowRepository) FindByWebhookToken(_ context.Context, token string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token != "" {
		for _, workflow := range r.workflows {
			if workflow.WebhookToken == token {
				return &workflow, nil
			}
		}
	}

	return nil, persistence.NewWorkflowError("FindByWebhookToken", "", persistence.ErrWorkflowNotFound)
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := persistence.PrepareWorkflow(workflow, time.Now().UTC())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.workflows[workflow.ID] = *workflow

	return nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[id]; !ok {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.workflows, id)

	return nil
}

func (r *WorkflowRepository) sorted(keep func(models.Workflow) bool) []*models.Workflow {
	workflows := make([]*models.Workflow, 0, len(r.workflows))

	for _, workflow := range r.workflows {
		if keep(workflow) {
			workflows = append(workflows, &workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		if workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].ID < workflows[j].ID
		}

		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows
}
