package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database span instrumentation.
type DBTracingConfig struct {
	Enabled          bool
	LogFullSQL       bool // include full SQL in spans, dev only
	SlowQueryThresh  time.Duration
	DBSystem         string
	WithoutVariables bool // strip query parameters from recorded SQL
}

// DefaultDBTracingConfig returns the secure defaults: tracing off, SQL and
// query parameters kept out of spans.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime stamps the context with the current time so the
// after-callbacks can compute query duration.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}

// markQueryStart is the shared before-callback stamping the statement
// context with the query start time.
func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan enriches the active span with rows affected, table name,
// errors, and slow query markers. ErrRecordNotFound is expected flow and
// never marks the span as failed.
func annotateSpan(db *gorm.DB, thresh time.Duration) {
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
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(startTime); elapsed > thresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", thresh.Milliseconds()),
			))
		}
	}
}

type callbackRegistrar struct {
	name     string
	register func(name string, fn func(*gorm.DB)) error
}

func beforeRegistrars(db *gorm.DB, prefix string) []callbackRegistrar {
	return []callbackRegistrar{
		{prefix + "create", db.Callback().Create().Before("gorm:create").Register},
		{prefix + "query", db.Callback().Query().Before("gorm:query").Register},
		{prefix + "update", db.Callback().Update().Before("gorm:update").Register},
		{prefix + "delete", db.Callback().Delete().Before("gorm:delete").Register},
		{prefix + "row", db.Callback().Row().Before("gorm:row").Register},
		{prefix + "raw", db.Callback().Raw().Before("gorm:raw").Register},
	}
}

func afterRegistrars(db *gorm.DB, prefix string) []callbackRegistrar {
	return []callbackRegistrar{
		{prefix + "create", db.Callback().Create().After("gorm:create").Register},
		{prefix + "query", db.Callback().Query().After("gorm:query").Register},
		{prefix + "update", db.Callback().Update().After("gorm:update").Register},
		{prefix + "delete", db.Callback().Delete().After("gorm:delete").Register},
		{prefix + "row", db.Callback().Row().After("gorm:row").Register},
		{prefix + "raw", db.Callback().Raw().After("gorm:raw").Register},
	}
}

func registerAll(registrars []callbackRegistrar, fn func(*gorm.DB)) error {
	for _, r := range registrars {
		if err := r.register(r.name, fn); err != nil {
			return err
		}
	}
	return nil
}

// DBTracingPlugin wires otelgorm into a GORM instance and layers slow
// query detection on top of it.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs otelgorm plus the timing and slow query
// callbacks on db. A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerAll(beforeRegistrars(db, "otel_timing:before_"), markQueryStart); err != nil {
		return err
	}
	if err := registerAll(afterRegistrars(db, "otel_slow_query:"), p.slowQueryCallback); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	annotateSpan(db, p.config.SlowQueryThresh)
}

// DBTracingCallback is the standalone timing instrumentation for setups
// that do not want the otelgorm plugin.
type DBTracingCallback struct {
	slowQueryThresh time.Duration
}

// NewDBTracingCallback creates a callback with the given slow query
// threshold.
func NewDBTracingCallback(slowQueryThresh time.Duration) *DBTracingCallback {
	return &DBTracingCallback{slowQueryThresh: slowQueryThresh}
}

// BeforeCallback stamps the statement context with the query start time.
func (c *DBTracingCallback) BeforeCallback(db *gorm.DB) {
	markQueryStart(db)
}

// AfterCallback annotates the active span with query outcome attributes.
func (c *DBTracingCallback) AfterCallback(db *gorm.DB) {
	annotateSpan(db, c.slowQueryThresh)
}

// RegisterCallbacks installs the before and after callbacks on db.
func (c *DBTracingCallback) RegisterCallbacks(db *gorm.DB) error {
	if err := registerAll(beforeRegistrars(db, "otel_timing:before_"), c.BeforeCallback); err != nil {
		return err
	}
	return registerAll(afterRegistrars(db, "otel_timing:after_"), c.AfterCallback)
}
