// Package config provides the runtime settings read by the engine, the queue and the
// built-in actions.
package config

import (
	"context"
	"strings"
	"sync"
	"time"
)

type ExecutionMode string

const (
	ModeSync  ExecutionMode = "sync"
	ModeAsync ExecutionMode = "async"
)

const (
	DefaultLogRetention   = 30
	DefaultMaxRetries     = 3
	MaxRetriesCeiling     = 10
	DefaultWebhookTimeout = 15
	WebhookTimeoutCeiling = 30
	DefaultQueueBatchSize = 10
	DefaultQueueRetention = 7
)

// Settings are operator-tunable values. Retention values are days and
// WebhookTimeoutSeconds is seconds.
type Settings struct {
	EnableLogging         bool          `json:"enable_logging"   yaml:"enable_logging"`
	LogRetention          int           `json:"log_retention"    yaml:"log_retention"`
	ExecutionMode         ExecutionMode `json:"execution_mode"   yaml:"execution_mode"`
	MaxRetries            int           `json:"max_retries"      yaml:"max_retries"`
	WebhookTimeoutSeconds int           `json:"webhook_timeout"  yaml:"webhook_timeout"`
	QueueBatchSize        int           `json:"queue_batch_size" yaml:"queue_batch_size"`
	QueueRetention        int           `json:"queue_retention"  yaml:"queue_retention"`
}

func Defaults() Settings {
	return Settings{
		EnableLogging:         true,
		LogRetention:          DefaultLogRetention,
		ExecutionMode:         ModeAsync,
		MaxRetries:            DefaultMaxRetries,
		WebhookTimeoutSeconds: DefaultWebhookTimeout,
		QueueBatchSize:        DefaultQueueBatchSize,
		QueueRetention:        DefaultQueueRetention,
	}
}

// Sanitize clamps every value into its accepted range.
func (s Settings) Sanitize() Settings {
	mode := ExecutionMode(strings.ToLower(strings.TrimSpace(string(s.ExecutionMode))))
	if mode != ModeSync {
		mode = ModeAsync
	}

	s.ExecutionMode = mode
	s.MaxRetries = clamp(s.MaxRetries, 1, MaxRetriesCeiling)
	s.WebhookTimeoutSeconds = clamp(s.WebhookTimeoutSeconds, 1, WebhookTimeoutCeiling)

	if s.QueueBatchSize <= 0 {
		s.QueueBatchSize = DefaultQueueBatchSize
	}

	if s.LogRetention < 0 {
		s.LogRetention = 0
	}

	if s.QueueRetention < 0 {
		s.QueueRetention = 0
	}

	return s
}

func (s Settings) WebhookTimeout() time.Duration {
	return time.Duration(s.WebhookTimeoutSeconds) * time.Second
}

func clamp(value, low, high int) int {
	return max(low, min(value, high))
}

// Source provides the current settings. Implementations are read on every dispatch
// and processing pass, so changes apply without a restart.
type Source interface {
	Settings(ctx context.Context) (Settings, error)
}

// Static is an in-memory Source.
type Static struct {
	mu       sync.RWMutex
	settings Settings
}

func NewStatic(settings Settings) *Static {
	return &Static{settings: settings.Sanitize()}
}

func (s *Static) Settings(context.Context) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

func (s *Static) Set(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings.Sanitize()
}
