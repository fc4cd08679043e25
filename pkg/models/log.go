package models

import "time"

type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogEntry is one persisted execution log record. WorkflowID is empty for
// system-level entries.
type LogEntry struct {
	ID         int64          `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Trigger    string         `json:"trigger"`
	Level      LogLevel       `json:"level"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context"`
	CreatedAt  time.Time      `json:"created_at"`
}
