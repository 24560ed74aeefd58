package persistence

import (
	"fmt"
	"time"

	"github.com/rt44/backend/internal/infrastructure/config"
	"github.com/rt44/backend/internal/infrastructure/logger"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// DatabaseOption customises NewDatabase
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	tracing       bool
}

// WithLogLevel sets the GORM log level (default: warn)
func WithLogLevel(level gormlogger.LogLevel) DatabaseOption {
	return func(o *databaseOptions) { o.logLevel = level }
}

// WithTracing registers otelgorm with the given slow query threshold
func WithTracing(slowThreshold time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.tracing = true
		o.slowThreshold = slowThreshold
	}
}

// NewDatabase opens the PostgreSQL connection pool
func NewDatabase(cfg config.DatabaseConfig, log *zap.Logger, opts ...DatabaseOption) (*Database, error) {
	return openDatabase(postgres.Open(cfg.DSN()), cfg, log, opts...)
}

func openDatabase(dialector gorm.Dialector, cfg config.DatabaseConfig, log *zap.Logger, opts ...DatabaseOption) (*Database, error) {
	o := databaseOptions{logLevel: gormlogger.Warn, slowThreshold: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log, o.logLevel, o.slowThreshold),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.tracing {
		if err := telemetry.NewDBTracing(o.slowThreshold, "postgresql", log).Register(db); err != nil {
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
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

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns connection pool statistics
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
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}
