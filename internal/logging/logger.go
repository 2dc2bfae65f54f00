// Package logging provides a common interface and setup for library-wide logging.
package logging

// file: internal/logging/logger.go

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging within the library.
// This abstraction allows for different logger implementations while
// maintaining consistent logging conventions throughout the codebase.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, args ...any)

	// Info logs an info-level message.
	Info(msg string, args ...any)

	// Warn logs a warning-level message.
	Warn(msg string, args ...any)

	// Error logs an error-level message.
	Error(msg string, args ...any)

	// WithContext returns a logger with context values.
	WithContext(ctx context.Context) Logger

	// WithField returns a logger with an additional field.
	WithField(key string, value any) Logger
}

type ctxKey struct{}

// NoopLogger implements Logger but does nothing.
// Used as a fallback when no logger is provided.
type NoopLogger struct{}

// Debug implements Logger but performs no action.
func (l *NoopLogger) Debug(_ string, _ ...any) {}

// Info implements Logger but performs no action.
func (l *NoopLogger) Info(_ string, _ ...any) {}

// Warn implements Logger but performs no action.
func (l *NoopLogger) Warn(_ string, _ ...any) {}

// Error implements Logger but performs no action.
func (l *NoopLogger) Error(_ string, _ ...any) {}

// WithContext implements Logger, returning the NoopLogger itself.
func (l *NoopLogger) WithContext(_ context.Context) Logger { return l }

// WithField implements Logger, returning the NoopLogger itself.
func (l *NoopLogger) WithField(_ string, _ any) Logger { return l }

// Global singleton instance of NoopLogger.
var noop = &NoopLogger{}

// GetNoopLogger returns the no-op logger instance.
func GetNoopLogger() Logger {
	return noop
}

// zapLogger adapts a *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a Logger backed by zap, at the given level name
// (one of "debug", "info", "warn", "error"). dev selects console
// encoding (development) vs JSON encoding (production).
func NewZapLogger(levelName string, dev bool) (Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: base.Sugar()}, nil
}

func (l *zapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if id := ctx.Value(ctxKey{}); id != nil {
		return &zapLogger{sugar: l.sugar.With("request_id", id)}
	}
	return l
}

func (l *zapLogger) WithField(key string, value any) Logger {
	return &zapLogger{sugar: l.sugar.With(key, value)}
}

// ContextWithRequestID attaches a request id that WithContext will surface
// as a structured field on any log line derived from the returned context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// defaultLogger is the library's default logger instance.
var defaultLogger = GetNoopLogger()

// SetDefaultLogger sets the default logger used by GetLogger.
func SetDefaultLogger(logger Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// GetLogger returns a logger scoped to the named component.
func GetLogger(name string) Logger {
	return defaultLogger.WithField("component", name)
}
