package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

var fromTable = regexp.MustCompile(`(?i)\bFROM\s+"?([a-z_][a-z0-9_]*)"?`)

// GormLogger routes GORM output through zap. SQL lines pick up the
// request, tenant and trace fields of the query context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a query is logged as slow.
// Zero disables slow query logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// NewGormLogger creates a new GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	For(ctx, l.logger).Sugar().Logf(lvl, msg, data...)
}

type queryOutcome int

const (
	querySkipped queryOutcome = iota
	queryOK
	querySlow
	queryFailed
)

// classify decides whether a statement is logged and how.
// ErrRecordNotFound counts as success.
func (l *GormLogger) classify(elapsed time.Duration, err error) queryOutcome {
	if err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) {
		if l.level >= gormlogger.Error {
			return queryFailed
		}
		return querySkipped
	}
	if l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn {
		return querySlow
	}
	if l.level >= gormlogger.Info {
		return queryOK
	}
	return querySkipped
}

// Trace logs one executed statement with its table, row count and timing
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	outcome := l.classify(elapsed, err)
	if outcome == querySkipped {
		return
	}

	sql, rows := fc()
	fields := make([]zap.Field, 0, 6)
	fields = append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if m := fromTable.FindStringSubmatch(sql); m != nil {
		fields = append(fields, zap.String("table", m[1]))
	}

	log := For(ctx, l.logger)
	switch outcome {
	case queryFailed:
		log.Error("SQL Error", append(fields, zap.Error(err))...)
	case querySlow:
		log.Warn("Slow SQL", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		log.Debug("SQL Query", fields...)
	}
}

// MapGormLogLevel maps a string log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if lvl, ok := gormLevels[strings.ToLower(level)]; ok {
		return lvl
	}
	return gormlogger.Warn
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}
