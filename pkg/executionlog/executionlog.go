// Package executionlog records what happened while dispatching and executing
// workflows. Sinks never fail the caller: errors are reported to slog and dropped.
package executionlog

import (
	"context"
	"log/slog"

	"github.com/dukex/autoflow/pkg/models"
)

// Entry is one execution log record. WorkflowID is empty for system-level entries.
type Entry struct {
	WorkflowID string
	Trigger    string
	Level      models.LogLevel
	Message    string
	Context    map[string]any
}

type Logger interface {
	Log(ctx context.Context, entry Entry)
}

// SlogLogger forwards entries to a slog logger.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger.With("module", "execution_log")}
}

func (l *SlogLogger) Log(ctx context.Context, entry Entry) {
	args := make([]any, 0, 4+2*len(entry.Context))

	if entry.WorkflowID != "" {
		args = append(args, "workflow_id", entry.WorkflowID)
	}

	if entry.Trigger != "" {
		args = append(args, "trigger", entry.Trigger)
	}

	for k, v := range entry.Context {
		args = append(args, k, v)
	}

	l.logger.Log(ctx, slogLevel(entry.Level), entry.Message, args...)
}

func slogLevel(level models.LogLevel) slog.Level {
	switch level {
	case models.LogLevelDebug:
		return slog.LevelDebug
	case models.LogLevelWarning:
		return slog.LevelWarn
	case models.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Multi fans an entry out to every sink in order.
type Multi []Logger

func (m Multi) Log(ctx context.Context, entry Entry) {
	for _, logger := range m {
		logger.Log(ctx, entry)
	}
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Log(context.Context, Entry) {}
