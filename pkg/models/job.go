package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a durable, retryable unit of deferred workflow execution.
// Payload is the JSON snapshot of the trigger payload taken at enqueue time.
type Job struct {
	ID          int64           `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DecodePayload returns the frozen payload; an empty snapshot decodes to an empty map.
func (j *Job) DecodePayload() (map[string]any, error) {
	payload := map[string]any{}
	if len(j.Payload) == 0 {
		return payload, nil
	}

	err := json.Unmarshal(j.Payload, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload of job %d: %w", j.ID, err)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	return payload, nil
}

// EncodePayload serializes a trigger payload for storage.
func EncodePayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return data, nil
}
