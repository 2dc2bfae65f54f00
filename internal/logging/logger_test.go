// internal/logging/logger_test.go
package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger(t *testing.T) {
	logger := GetLogger("test")
	require.NotNil(t, logger)
}

func TestNoopLoggerIsSafe(t *testing.T) {
	logger := GetNoopLogger()
	logger.Debug("ignored")
	logger.Info("ignored", "k", "v")
	logger.Warn("ignored")
	logger.Error("ignored")
	assert.Equal(t, logger, logger.WithField("k", "v"))
	assert.Equal(t, logger, logger.WithContext(context.Background()))
}

func TestNewZapLoggerDefaultsUnknownLevel(t *testing.T) {
	logger, err := NewZapLogger("not-a-level", true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("still logs at info even with a bad level string")
}

func TestSetDefaultLoggerRejectsNil(t *testing.T) {
	original := defaultLogger
	defer func() { defaultLogger = original }()

	sentinel := GetNoopLogger()
	SetDefaultLogger(sentinel)
	assert.Equal(t, sentinel, defaultLogger)

	SetDefaultLogger(nil)
	assert.Equal(t, sentinel, defaultLogger, "SetDefaultLogger(nil) must not clear the default")
}

func TestContextWithRequestIDSurfacesAsField(t *testing.T) {
	logger, err := NewZapLogger("debug", true)
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	scoped := logger.WithContext(ctx)
	require.NotNil(t, scoped)
	assert.NotSame(t, logger, scoped, "a context carrying a request id must yield a derived logger with that field")
	scoped.Info("request scoped log line")
}
