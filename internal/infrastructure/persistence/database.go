package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM connection and the context-bound transaction
// plumbing every repository rides on.
type Database struct {
	DB *gorm.DB
}

// Option configures the database connection.
type Option func(*options)

type options struct {
	gormLogger logger.Interface
}

// WithGormLogger routes GORM's query logging through the given logger,
// usually the zap-backed one.
func WithGormLogger(l logger.Interface) Option {
	return func(o *options) {
		o.gormLogger = l
	}
}

// WithLogLevel uses GORM's default stdout logger at the given level.
// Mostly useful in tests and one-off tooling.
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) {
		o.gormLogger = logger.Default.LogMode(level)
	}
}

// NewDatabase opens a PostgreSQL connection pool sized from cfg and
// verifies it with a ping. Query logging is silent unless an option
// says otherwise.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := options{
		gormLogger: logger.Default.LogMode(logger.Silent),
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 o.gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// ConnectionStats is a snapshot of the connection pool, exposed through
// the health endpoint.
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxIdleTimeClosed  int64
	MaxLifetimeClosed  int64
}

// Stats returns connection pool statistics.
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}, nil
}

// txKey is the context key carrying an open transaction to repositories
type txKey struct{}

// InTransaction runs fn inside a single database transaction. The open
// transaction travels in the context: every repository call made with
// that context joins it, so payment recording, allocation writes and
// charge updates commit or roll back together.
func (d *Database) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		// Already inside a transaction, join it
		return fn(ctx)
	}
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction bound to ctx if one is open, otherwise
// the root connection. Repositories route every query through this.
func (d *Database) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.DB
}

// WithTenant returns a new GORM DB instance scoped to a specific tenant.
// Panics if tenantID is empty to prevent data leakage.
func (d *Database) WithTenant(tenantID string) *gorm.DB {
	if tenantID == "" {
		panic("WithTenant called with empty tenant ID - this is a programming error")
	}
	return d.DB.Where("tenant_id = ?", tenantID)
}
