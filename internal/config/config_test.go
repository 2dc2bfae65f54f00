package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
server:
  network: "tcp"
  addr: "0.0.0.0:9000"
logging:
  level: "debug"
  dev: true
`)

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp", settings.Server.Network)
	assert.Equal(t, "0.0.0.0:9000", settings.Server.Addr)
	assert.Equal(t, "debug", settings.Logging.Level)
	assert.True(t, settings.Logging.Dev)
}

func TestLoadRejectsMissingAddr(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
server:
  network: "tcp"
logging:
  level: "info"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
server:
  addr: "127.0.0.1:7700"
logging:
  level: "verbose"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestNewReturnsWorkingDefaults(t *testing.T) {
	settings := New()
	assert.Equal(t, "tcp", settings.Server.Network)
	assert.NotEmpty(t, settings.Server.Addr)
	assert.Equal(t, "info", settings.Logging.Level)
}

func TestExpandPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/kestrel/tokens")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "kestrel/tokens"), expanded)
}

func TestExpandPathLeavesAbsolutePathAlone(t *testing.T) {
	expanded, err := ExpandPath("/tmp/kestrel")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kestrel", expanded)
}
