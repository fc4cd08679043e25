package workflow

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// Repository validates definitions on their way into the definition store.
type Repository struct {
	store     persistence.WorkflowRepository
	validator *Validator
}

func NewRepository(store persistence.WorkflowRepository, validator *Validator) *Repository {
	return &Repository{
		store:     store,
		validator: validator,
	}
}

func (r *Repository) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.store.GetByID(ctx, id)
}

// Import validates the definition and saves it. New definitions get an ID and
// timestamps from the store; existing ones keep their creation time.
func (r *Repository) Import(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if err := r.validator.Validate(workflow); err != nil {
		return nil, err
	}

	if workflow.ID != "" {
		existing, err := r.store.GetByID(ctx, workflow.ID)

		switch {
		case err == nil:
			workflow.CreatedAt = existing.CreatedAt
		case !persistence.IsWorkflowNotFound(err):
			return nil, err
		}
	}

	if err := r.store.Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", workflow.Name, err)
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}
