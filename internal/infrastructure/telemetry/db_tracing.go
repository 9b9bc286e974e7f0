// Package telemetry provides OpenTelemetry integration for distributed tracing.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls how GORM query spans are produced.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include literal SQL in spans; keep off outside dev
	SlowQueryThresh time.Duration // queries above this get a slow_query_warning event
	DBSystem        string
}

// DefaultDBTracingConfig returns the conservative defaults: tracing off,
// no SQL literals, 200ms slow-query threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin layers slow-query detection and error marking on top of the
// otelgorm spans. Allocation runs fan out into many small queries, so the
// per-query duration attributes are what make a slow contract scan visible.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm attaches the otelgorm plugin plus the timing callbacks to
// the GORM instance. A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerTimingCallbacks wraps every GORM operation with a start-time marker
// and a span-enrichment pass that runs after otelgorm has opened the span.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("otel_timing:before_create", p.markStart),
		cb.Create().After("gorm:create").Register("otel_timing:after_create", p.finishSpan),
		cb.Query().Before("gorm:query").Register("otel_timing:before_query", p.markStart),
		cb.Query().After("gorm:query").Register("otel_timing:after_query", p.finishSpan),
		cb.Update().Before("gorm:update").Register("otel_timing:before_update", p.markStart),
		cb.Update().After("gorm:update").Register("otel_timing:after_update", p.finishSpan),
		cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", p.markStart),
		cb.Delete().After("gorm:delete").Register("otel_timing:after_delete", p.finishSpan),
		cb.Row().Before("gorm:row").Register("otel_timing:before_row", p.markStart),
		cb.Row().After("gorm:row").Register("otel_timing:after_row", p.finishSpan),
		cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", p.markStart),
		cb.Raw().After("gorm:raw").Register("otel_timing:after_raw", p.finishSpan),
	)
}

// markStart records the query start time in the statement context so
// finishSpan can compute an accurate elapsed duration.
func (p *DBTracingPlugin) markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = WithQueryStartTime(db.Statement.Context)
	}
}

// finishSpan annotates the active span with row counts, the target table,
// query errors, and a slow-query event when the threshold is exceeded.
func (p *DBTracingPlugin) finishSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is an expected lookup miss, not a span failure.
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime returns a context carrying the query start time used for
// slow-query elapsed-time calculation.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
