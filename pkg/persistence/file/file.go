// Package file provides file-based persistence for workflow definitions. The queue,
// execution logs and entities live in memory, so this backend suits development only.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/memory"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	runtime      *memory.Persistence
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		runtime:      memory.NewPersistence(),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) QueueRepository() persistence.QueueRepository {
	return fp.runtime.QueueRepository()
}

func (fp *Persistence) LogRepository() persistence.LogRepository {
	return fp.runtime.LogRepository()
}

func (fp *Persistence) EntityStore() persistence.EntityStore {
	return fp.runtime.EntityStore()
}

// Entities exposes the in-memory entity store so callers can register host entities.
func (fp *Persistence) Entities() *memory.EntityStore {
	return fp.runtime.Entities()
}
