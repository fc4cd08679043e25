package web

import (
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/registry"
	"github.com/dukex/autoflow/pkg/triggers"
)

// TriggerRequest is the body of the dispatch and execute endpoints.
type TriggerRequest struct {
	Payload map[string]any `json:"payload"`
}

// ListLogsRequest holds the query parameters of GET /logs.
type ListLogsRequest struct {
	WorkflowID string `query:"workflow_id"`
	Level      string `query:"level"       validate:"omitempty,oneof=debug info warning error"`
	Page       int    `query:"page"        validate:"gte=0"`
	PerPage    int    `query:"per_page"    validate:"gte=0,lte=100"`
}

// SystemInfoResponse describes everything a workflow definition can reference.
type SystemInfoResponse struct {
	Version    string                  `json:"version"`
	Triggers   []triggers.Descriptor   `json:"triggers"`
	Conditions []conditions.Descriptor `json:"conditions"`
	Actions    []registry.Descriptor   `json:"actions"`
}

// WorkflowSummary is the list view of a workflow.
type WorkflowSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Trigger    string `json:"trigger"`
	Enabled    bool   `json:"enabled"`
	Actions    int    `json:"actions"`
	HasWebhook bool   `json:"has_webhook"`
}

func summarizeWorkflow(workflow *models.Workflow) WorkflowSummary {
	return WorkflowSummary{
		ID:         workflow.ID,
		Name:       workflow.Name,
		Trigger:    workflow.Trigger,
		Enabled:    workflow.Enabled,
		Actions:    len(workflow.Actions),
		HasWebhook: workflow.WebhookToken != "",
	}
}

type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
