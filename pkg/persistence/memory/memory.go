// Package memory provides an in-process persistence backend for development and tests.
package memory

import (
	"context"

	"github.com/dukex/autoflow/pkg/persistence"
)

// Persistence keeps every repository in memory. Nothing survives a restart.
type Persistence struct {
	workflows *WorkflowRepository
	queue     *QueueRepository
	logs      *LogRepository
	entities  *EntityStore
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows: NewWorkflowRepository(),
		queue:     NewQueueRepository(),
		logs:      NewLogRepository(),
		entities:  NewEntityStore(),
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) QueueRepository() persistence.QueueRepository {
	return p.queue
}

func (p *Persistence) LogRepository() persistence.LogRepository {
	return p.logs
}

func (p *Persistence) EntityStore() persistence.EntityStore {
	return p.entities
}

// Entities exposes the concrete store so callers can register host entities.
func (p *Persistence) Entities() *EntityStore {
	return p.entities
}

func (p *Persistence) HealthCheck(context.Context) error {
	return nil
}

func (p *Persistence) Close(context.Context) error {
	return nil
}
