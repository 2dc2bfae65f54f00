// Package config loads and validates kestrel's runtime configuration:
// which address to listen on, and how to log. Values come from a YAML
// file read through viper, validated against a JSON schema before being
// unmarshalled, with the log level live-reloaded on file change.
package config

// file: internal/config/config.go

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
)

// Settings is kestrel's full runtime configuration.
type Settings struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig configures the listener a server.Server binds.
type ServerConfig struct {
	Network string `mapstructure:"network"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// New returns Settings populated with kestrel's out-of-the-box
// defaults: a TCP listener on localhost:7700, info-level logging.
func New() *Settings {
	return &Settings{
		Server: ServerConfig{
			Network: "tcp",
			Addr:    "127.0.0.1:7700",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dev:   false,
		},
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to resolve user home directory"),
			rpcerr.CategoryLocal, rpcerr.CodeInternalError,
			map[string]interface{}{"input_path": path},
		)
	}
	return filepath.Join(home, path[1:]), nil
}

// settingsSchema validates the shape Settings unmarshals from: a
// present server.addr and a logging.level drawn from zap's accepted
// names.
const settingsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "network": {"type": "string", "minLength": 1},
        "addr": {"type": "string", "minLength": 1}
      },
      "required": ["addr"]
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "error"]},
        "dev": {"type": "boolean"}
      }
    }
  }
}`

func compileSettingsSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("settings.json", strings.NewReader(settingsSchema)); err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to add settings schema resource"),
			rpcerr.CategoryLocal, rpcerr.CodeInternalError, nil,
		)
	}
	schema, err := compiler.Compile("settings.json")
	if err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to compile settings schema"),
			rpcerr.CategoryLocal, rpcerr.CodeInternalError, nil,
		)
	}
	return schema, nil
}

// Load reads Settings from path (YAML), validates the decoded document
// against settingsSchema, and unmarshals it over New()'s defaults. It
// then watches path for changes and live-reloads only the log level,
// replacing the process-wide default logger in place.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("kestrel")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to read config file"),
			rpcerr.CategoryLocal, rpcerr.CodeInternalError,
			map[string]interface{}{"path": path},
		)
	}

	schema, err := compileSettingsSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(v.AllSettings()); err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "config file failed schema validation"),
			rpcerr.CategoryLocal, rpcerr.CodeInvalidRequest,
			map[string]interface{}{"path": path},
		)
	}

	settings := New()
	if err := v.Unmarshal(settings); err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to unmarshal config"),
			rpcerr.CategoryLocal, rpcerr.CodeInternalError,
			map[string]interface{}{"path": path},
		)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		level := v.GetString("logging.level")
		if level == "" {
			return
		}
		logger, err := logging.NewZapLogger(level, v.GetBool("logging.dev"))
		if err != nil {
			return
		}
		logging.SetDefaultLogger(logger)
	})
	v.WatchConfig()

	return settings, nil
}
