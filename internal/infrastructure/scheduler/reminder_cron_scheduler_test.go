package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appreminder "github.com/fleetrent/backend/internal/application/reminder"
)

type fakeRunner struct {
	mu      sync.Mutex
	runs    []uuid.UUID
	lastDay time.Time
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, tenantID uuid.UUID, today time.Time) (*appreminder.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.runs = append(f.runs, tenantID)
	f.lastDay = today
	return &appreminder.RunResult{Processed: 2, Emitted: 1, Skipped: 1, Timestamp: time.Now()}, nil
}

type fakeTenantLister struct {
	ids []uuid.UUID
	err error
}

func (f *fakeTenantLister) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f.ids, f.err
}

func TestReminderCronScheduler_ShouldRun(t *testing.T) {
	cfg := DefaultReminderCronSchedulerConfig()
	cfg.CronHour = 6
	cfg.CronMinute = 30
	s := NewReminderCronScheduler(cfg, &fakeRunner{}, &fakeTenantLister{}, nil, zap.NewNop())

	assert.True(t, s.shouldRun(time.Date(2026, 3, 10, 6, 30, 45, 0, time.UTC)))
	assert.False(t, s.shouldRun(time.Date(2026, 3, 10, 6, 31, 0, 0, time.UTC)))
	assert.False(t, s.shouldRun(time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)))
}

func TestReminderCronScheduler_NextRunTime(t *testing.T) {
	cfg := DefaultReminderCronSchedulerConfig()
	s := NewReminderCronScheduler(cfg, &fakeRunner{}, &fakeTenantLister{}, nil, zap.NewNop())

	s.calculateNextRunTime()
	next := s.GetNextRunAt()
	require.NotNil(t, next)

	assert.Equal(t, cfg.CronHour, next.Hour())
	assert.Equal(t, cfg.CronMinute, next.Minute())
	assert.True(t, next.After(time.Now().Add(-time.Minute)))
}

func TestReminderCronScheduler_RunDailyPass(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	runner := &fakeRunner{}
	lister := &fakeTenantLister{ids: []uuid.UUID{tenantA, tenantB}}

	cfg := DefaultReminderCronSchedulerConfig()
	s := NewReminderCronScheduler(cfg, runner, lister, nil, zap.NewNop())

	s.runDailyPass(context.Background())

	assert.ElementsMatch(t, []uuid.UUID{tenantA, tenantB}, runner.runs)
	assert.NotNil(t, s.GetLastRunAt())

	// Run date is a day boundary
	assert.Equal(t, 0, runner.lastDay.Hour())
	assert.Equal(t, 0, runner.lastDay.Minute())
}

func TestReminderCronScheduler_RunnerFailureDoesNotPanic(t *testing.T) {
	runner := &fakeRunner{err: assert.AnError}
	lister := &fakeTenantLister{ids: []uuid.UUID{uuid.New()}}

	s := NewReminderCronScheduler(DefaultReminderCronSchedulerConfig(), runner, lister, nil, zap.NewNop())
	s.runDailyPass(context.Background())

	assert.Empty(t, runner.runs)
}

func TestReminderCronScheduler_TriggerManualRun(t *testing.T) {
	s := NewReminderCronScheduler(DefaultReminderCronSchedulerConfig(), &fakeRunner{}, &fakeTenantLister{}, nil, zap.NewNop())

	// Not started yet
	err := s.TriggerManualRun(context.Background())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	assert.NoError(t, s.TriggerManualRun(context.Background()))
}

func TestReminderCronScheduler_StartStop(t *testing.T) {
	s := NewReminderCronScheduler(DefaultReminderCronSchedulerConfig(), &fakeRunner{}, &fakeTenantLister{}, nil, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))

	status := s.GetStatus()
	assert.Equal(t, true, status["is_running"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	status = s.GetStatus()
	assert.Equal(t, false, status["is_running"])
}
