package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	calls atomic.Int32
	err   error
}

func (p *fakeProcessor) ProcessQueue(context.Context) (workflow.ProcessSummary, error) {
	p.calls.Add(1)

	return workflow.ProcessSummary{}, p.err
}

type fakePurger struct {
	days    []int
	deleted int64
	err     error
}

func (p *fakePurger) Purge(_ context.Context, days int) (int64, error) {
	p.days = append(p.days, days)

	return p.deleted, p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "defaults", config: Config{}},
		{name: "standard expressions", config: Config{ProcessSpec: "*/5 * * * *", PurgeSpec: "0 3 * * *"}},
		{name: "bad process", config: Config{ProcessSpec: "every minute"}, wantErr: "invalid process schedule"},
		{name: "bad purge", config: Config{PurgeSpec: "* * *"}, wantErr: "invalid purge schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScheduler_RunPurge(t *testing.T) {
	settings := config.Defaults()
	settings.QueueRetention = 3
	settings.LogRetention = 14

	jobs := &fakePurger{deleted: 5}
	logs := &fakePurger{deleted: 12}

	s := New(&fakeProcessor{}, jobs, logs, config.NewStatic(settings), Config{}, discardLogger())

	result, err := s.RunPurge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PurgeResult{Jobs: 5, Logs: 12}, result)
	assert.Equal(t, []int{3}, jobs.days)
	assert.Equal(t, []int{14}, logs.days)
}

func TestScheduler_RunPurgeContinuesAfterFailure(t *testing.T) {
	jobs := &fakePurger{err: errors.New("db down")}
	logs := &fakePurger{deleted: 2}

	s := New(&fakeProcessor{}, jobs, logs, config.NewStatic(config.Defaults()), Config{}, discardLogger())

	result, err := s.RunPurge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to purge jobs: db down")
	assert.Equal(t, int64(2), result.Logs)
	assert.Equal(t, []int{config.DefaultLogRetention}, logs.days)
}

func TestScheduler_RunPurgeWithoutLogStore(t *testing.T) {
	jobs := &fakePurger{deleted: 1}

	s := New(&fakeProcessor{}, jobs, nil, config.NewStatic(config.Defaults()), Config{}, discardLogger())

	result, err := s.RunPurge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PurgeResult{Jobs: 1}, result)
}

func TestScheduler_RunProcessSwallowsErrors(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("claim failed")}

	s := New(processor, nil, nil, config.NewStatic(config.Defaults()), Config{}, discardLogger())

	assert.NotPanics(t, func() { s.RunProcess(context.Background()) })
	assert.Equal(t, int32(1), processor.calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	processor := &fakeProcessor{}

	s := New(processor, &fakePurger{}, nil, config.NewStatic(config.Defaults()), Config{ProcessSpec: "@every 10ms"}, discardLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	assert.Len(t, s.entries, 2)

	assert.Eventually(t, func() bool { return processor.calls.Load() > 0 }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_StartRejectsInvalidSchedule(t *testing.T) {
	s := New(&fakeProcessor{}, nil, nil, config.NewStatic(config.Defaults()), Config{ProcessSpec: "nope"}, discardLogger())

	require.Error(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
