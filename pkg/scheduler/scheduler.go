// Package scheduler drives periodic queue processing and retention purges with cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/robfig/cron/v3"
)

const (
	DefaultProcessSpec = "@every 1m"
	DefaultPurgeSpec   = "@daily"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

type QueueProcessor interface {
	ProcessQueue(ctx context.Context) (workflow.ProcessSummary, error)
}

// Purger deletes records older than the given number of days.
type Purger interface {
	Purge(ctx context.Context, days int) (int64, error)
}

type Config struct {
	ProcessSpec string
	PurgeSpec   string
}

func (c Config) withDefaults() Config {
	if c.ProcessSpec == "" {
		c.ProcessSpec = DefaultProcessSpec
	}

	if c.PurgeSpec == "" {
		c.PurgeSpec = DefaultPurgeSpec
	}

	return c
}

func (c Config) Validate() error {
	c = c.withDefaults()

	if _, err := cron.ParseStandard(c.ProcessSpec); err != nil {
		return fmt.Errorf("invalid process schedule '%s': %w", c.ProcessSpec, err)
	}

	if _, err := cron.ParseStandard(c.PurgeSpec); err != nil {
		return fmt.Errorf("invalid purge schedule '%s': %w", c.PurgeSpec, err)
	}

	return nil
}

type Scheduler struct {
	processor QueueProcessor
	jobs      Purger
	logs      Purger
	settings  config.Source
	config    Config
	logger    *slog.Logger

	mutex   sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New builds a scheduler. logs may be nil when execution logs are not persisted.
func New(processor QueueProcessor, jobs, logs Purger, settings config.Source, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		jobs:      jobs,
		logs:      logs,
		settings:  settings,
		config:    cfg.withDefaults(),
		logger:    logger.With("module", "scheduler"),
		entries:   make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	s.logger.InfoContext(ctx, "Starting scheduler", "process", s.config.ProcessSpec, "purge", s.config.PurgeSpec)
	s.ctx, s.cancel = context.WithCancel(ctx)

	cronLogger := cronLogger{logger: s.logger}
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	if err := s.add("process_queue", s.config.ProcessSpec, func() { s.RunProcess(s.ctx) }); err != nil {
		return err
	}

	if err := s.add("purge", s.config.PurgeSpec, func() { s.RunPurge(s.ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started successfully")

	return nil
}

func (s *Scheduler) add(name, spec string, job func()) error {
	entryID, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}

	s.entries[name] = entryID
	s.logger.Info("Added cron job", "job", name, "cron", spec, "entry_id", entryID)

	return nil
}

// Stop halts the cron and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mutex.Lock()
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.entries = make(map[string]cron.EntryID)
	s.mutex.Unlock()

	if c == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "Stopping scheduler")

	done := c.Stop()

	defer cancel()

	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunProcess runs one queue processing pass.
func (s *Scheduler) RunProcess(ctx context.Context) {
	if _, err := s.processor.ProcessQueue(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Queue processing failed", "error", err)
	}
}

// PurgeResult reports how many records a purge pass removed.
type PurgeResult struct {
	Jobs int64 `json:"jobs"`
	Logs int64 `json:"logs"`
}

// RunPurge deletes finished jobs older than queue_retention and log entries older than
// log_retention. Both purges run even when one fails.
func (s *Scheduler) RunPurge(ctx context.Context) (PurgeResult, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read settings, using defaults", "error", err)

		settings = config.Defaults()
	}

	settings = settings.Sanitize()

	var (
		result PurgeResult
		errs   []error
	)

	if s.jobs != nil {
		deleted, err := s.jobs.Purge(ctx, settings.QueueRetention)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to purge jobs: %w", err))
		}

		result.Jobs = deleted
	}

	if s.logs != nil {
		deleted, err := s.logs.Purge(ctx, settings.LogRetention)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to purge logs: %w", err))
		}

		result.Logs = deleted
	}

	err = errors.Join(errs...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Purge failed", "error", err)
	}

	return result, err
}

// cronLogger forwards cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
