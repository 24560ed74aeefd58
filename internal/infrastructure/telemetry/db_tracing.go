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

type contextKey string

const queryStartKey contextKey = "rt44_query_start"

// DBTracing registers otelgorm on a GORM handle together with callbacks that
// flag slow statements and failed statements on the active span.
type DBTracing struct {
	slowThreshold time.Duration
	dbSystem      string
	logger        *zap.Logger
}

// NewDBTracing creates the GORM tracing hook. dbSystem is "postgresql" or "sqlite".
func NewDBTracing(slowThreshold time.Duration, dbSystem string, logger *zap.Logger) *DBTracing {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &DBTracing{slowThreshold: slowThreshold, dbSystem: dbSystem, logger: logger}
}

// Register installs the plugin. Query variables are never attached to spans
// because they carry resident names and phone numbers.
func (t *DBTracing) Register(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(t.dbSystem),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	cb := db.Callback()
	type registrar struct {
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}
	ops := map[string]registrar{
		"create": {cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		"query":  {cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		"update": {cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		"delete": {cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		"row":    {cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		"raw":    {cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for op, r := range ops {
		if err := r.before("rt44_timing:before_"+op, t.before); err != nil {
			return err
		}
		if err := r.after("rt44_timing:after_"+op, t.after); err != nil {
			return err
		}
	}

	t.logger.Info("Database tracing enabled",
		zap.Duration("slow_query_threshold", t.slowThreshold),
		zap.String("db_system", t.dbSystem),
	)
	return nil
}

func (t *DBTracing) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey, time.Now())
	}
}

func (t *DBTracing) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if start, ok := ctx.Value(queryStartKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > t.slowThreshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
