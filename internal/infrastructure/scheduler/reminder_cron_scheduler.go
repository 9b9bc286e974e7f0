package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appreminder "github.com/fleetrent/backend/internal/application/reminder"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// Job statuses recorded for scheduler runs
const (
	JobStatusRunning = "RUNNING"
	JobStatusSuccess = "SUCCESS"
	JobStatusFailed  = "FAILED"
)

// ReminderRunner executes one reminder pass for a tenant and day
type ReminderRunner interface {
	Run(ctx context.Context, tenantID uuid.UUID, today time.Time) (*appreminder.RunResult, error)
}

// TenantLister enumerates the tenants that carry ledger data
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ReminderCronSchedulerConfig holds configuration for the daily reminder scheduler
type ReminderCronSchedulerConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the daily pass
	CronHour int
	// CronMinute is the minute (0-59) to run the daily pass
	CronMinute int
	// Location is the timezone the run time is evaluated in
	Location *time.Location
	// JobTimeout is the maximum time a single tenant pass can run
	JobTimeout time.Duration
}

// DefaultReminderCronSchedulerConfig returns default scheduler configuration.
// Defaults to running at 6:00 AM UTC daily.
func DefaultReminderCronSchedulerConfig() ReminderCronSchedulerConfig {
	return ReminderCronSchedulerConfig{
		Enabled:    true,
		CronHour:   6,
		CronMinute: 0,
		Location:   time.UTC,
		JobTimeout: 10 * time.Minute,
	}
}

// SchedulerJobRecord represents a record of a scheduled reminder run
type SchedulerJobRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null"`
	JobDate     time.Time  `gorm:"column:job_date;type:date;not null"`
	Status      string     `gorm:"column:status;size:20;not null"`
	Processed   int        `gorm:"column:processed"`
	Emitted     int        `gorm:"column:emitted"`
	Skipped     int        `gorm:"column:skipped"`
	Failed      int        `gorm:"column:failed"`
	Error       string     `gorm:"column:last_error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (SchedulerJobRecord) TableName() string {
	return "scheduler_jobs"
}

// SchedulerJobRepository handles persistence of scheduler job records
type SchedulerJobRepository struct {
	db *gorm.DB
}

// NewSchedulerJobRepository creates a new SchedulerJobRepository
func NewSchedulerJobRepository(db *gorm.DB) *SchedulerJobRepository {
	return &SchedulerJobRepository{db: db}
}

// RecordJobStart records the start of a reminder run for a tenant
func (r *SchedulerJobRepository) RecordJobStart(ctx context.Context, tenantID uuid.UUID, jobDate time.Time) (uuid.UUID, error) {
	now := time.Now()
	record := &SchedulerJobRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		JobDate:   jobDate,
		Status:    JobStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordJobComplete records the outcome of a reminder run
func (r *SchedulerJobRepository) RecordJobComplete(ctx context.Context, jobID uuid.UUID, result *appreminder.RunResult, errMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"status":       JobStatusSuccess,
		"last_error":   errMsg,
		"completed_at": now,
		"updated_at":   now,
	}
	if errMsg != "" {
		updates["status"] = JobStatusFailed
	}
	if result != nil {
		updates["processed"] = result.Processed
		updates["emitted"] = result.Emitted
		updates["skipped"] = result.Skipped
		updates["failed"] = result.Failed
	}
	return r.db.WithContext(ctx).
		Model(&SchedulerJobRecord{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}

// GetLastJob returns the most recent job record for a tenant
func (r *SchedulerJobRepository) GetLastJob(ctx context.Context, tenantID uuid.UUID) (*SchedulerJobRecord, error) {
	var record SchedulerJobRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ReminderCronScheduler runs the reminder pass for every tenant once a day
type ReminderCronScheduler struct {
	config  ReminderCronSchedulerConfig
	runner  ReminderRunner
	tenants TenantLister
	jobRepo *SchedulerJobRepository
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewReminderCronScheduler creates a new daily reminder scheduler
func NewReminderCronScheduler(
	config ReminderCronSchedulerConfig,
	runner ReminderRunner,
	tenants TenantLister,
	jobRepo *SchedulerJobRepository,
	logger *zap.Logger,
) *ReminderCronScheduler {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &ReminderCronScheduler{
		config:  config,
		runner:  runner,
		tenants: tenants,
		jobRepo: jobRepo,
		logger:  logger,
	}
}

// Start starts the cron scheduler
func (s *ReminderCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Reminder cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.String("timezone", s.config.Location.String()),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *ReminderCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reminder cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reminder cron scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *ReminderCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	// Use a ticker that checks every minute for cron execution
	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now.In(s.config.Location)) {
				s.runDailyPass(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *ReminderCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *ReminderCronScheduler) calculateNextRunTime() {
	now := time.Now().In(s.config.Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, s.config.Location)

	// If we've already passed today's run time, schedule for tomorrow
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runDailyPass runs the reminder pass for all tenants. The dedup key
// makes the pass idempotent, so a tenant failing and being retried
// later never double-emits.
func (s *ReminderCronScheduler) runDailyPass(ctx context.Context) {
	s.logger.Info("Starting daily reminder pass")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	local := now.In(s.config.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	tenantIDs, err := s.tenants.ListTenantIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for reminder pass", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		s.runForTenant(ctx, tenantID, today)
	}

	s.logger.Info("Daily reminder pass finished", zap.Int("tenant_count", len(tenantIDs)))
}

// runForTenant runs one tenant's pass with its own timeout and job record
func (s *ReminderCronScheduler) runForTenant(ctx context.Context, tenantID uuid.UUID, today time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	var jobID uuid.UUID
	if s.jobRepo != nil {
		var recordErr error
		jobID, recordErr = s.jobRepo.RecordJobStart(runCtx, tenantID, today)
		if recordErr != nil {
			s.logger.Warn("Failed to record reminder job start",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(recordErr),
			)
		}
	}

	result, err := s.runner.Run(runCtx, tenantID, today)
	if err != nil {
		s.logger.Error("Reminder pass failed for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		if s.jobRepo != nil && jobID != uuid.Nil {
			_ = s.jobRepo.RecordJobComplete(runCtx, jobID, nil, err.Error())
		}
		return
	}

	if s.jobRepo != nil && jobID != uuid.Nil {
		_ = s.jobRepo.RecordJobComplete(runCtx, jobID, result, "")
	}

	s.logger.Info("Reminder pass finished for tenant",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("emitted", result.Emitted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
}

// TriggerManualRun triggers a manual run of the daily pass.
// Note: Uses background context to avoid premature cancellation when HTTP request completes
func (s *ReminderCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runDailyPass(context.Background())
	return nil
}

// GetStatus returns the current status of the cron scheduler
func (s *ReminderCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"cron_hour":   s.config.CronHour,
		"cron_minute": s.config.CronMinute,
		"timezone":    s.config.Location.String(),
		"last_run_at": s.lastRunAt,
		"next_run_at": s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *ReminderCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *ReminderCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
