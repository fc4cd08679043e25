// Package models defines the core domain models for trigger-driven workflow automation.
package models

import "time"

// Workflow binds one trigger, one condition group and an ordered action list.
// The engine only ever reads it; definitions are owned by the definition store.
type Workflow struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"                    validate:"required,min=3"`
	Trigger      string             `json:"trigger"                 validate:"required"`
	Conditions   ConditionGroup     `json:"conditions"`
	Actions      []ActionInvocation `json:"actions"                 validate:"dive"`
	Enabled      bool               `json:"enabled"`
	WebhookToken string             `json:"webhook_token,omitempty" validate:"omitempty,min=32,max=64"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// TriggerEvent is the transient (slug, payload) pair produced by an event source.
type TriggerEvent struct {
	Slug    string         `json:"trigger" validate:"required"`
	Payload map[string]any `json:"payload"`
}
