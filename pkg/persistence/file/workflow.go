package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow under <root>/workflows.
type WorkflowRepository struct {
	mu   sync.RWMutex
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

// GetAll loads every workflow, oldest first.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	return wr.loadAll(ctx)
}

func (wr *WorkflowRepository) loadAll(_ context.Context) ([]*models.Workflow, error) {
	jsonFiles, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := wr.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		if workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].ID < workflows[j].ID
		}

		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	return wr.read(workflowID)
}

func (wr *WorkflowRepository) read(workflowID string) (*models.Workflow, error) {
	if workflowID == "" || strings.ContainsAny(workflowID, `/\`) {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	filePath := filepath.Clean(path.Join(wr.dir(), workflowID+".json"))

	body, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	if workflow.ID == "" {
		workflow.ID = workflowID
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) FindEnabledByTrigger(ctx context.Context, trigger string) ([]string, error) {
	workflows, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)

	for _, workflow := range workflows {
		if workflow.Enabled && workflow.Trigger == trigger {
			ids = append(ids, workflow.ID)
		}
	}

	return ids, nil
}

func (wr *WorkflowRepository) FindByWebhookToken(ctx context.Context, token string) (*models.Workflow, error) {
	if token != "" {
		workflows, err := wr.GetAll(ctx)
		if err != nil {
			return nil, err
		}

		for _, workflow := range workflows {
			if workflow.WebhookToken == token {
				return workflow, nil
			}
		}
	}

	return nil, persistence.NewWorkflowError("FindByWebhookToken", "", persistence.ErrWorkflowNotFound)
}

// Save saves a workflow to the file system.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	err = persistence.PrepareWorkflow(workflow, time.Now().UTC())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	filePath := path.Join(wr.dir(), workflow.ID+".json")

	err = os.WriteFile(filePath, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.Remove(path.Join(wr.dir(), id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
