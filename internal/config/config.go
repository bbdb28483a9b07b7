package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Config is the top-level configuration struct for srsl.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Script   ScriptConfig   `mapstructure:"script"`
	APT      APTConfig      `mapstructure:"apt"`
	Log      LogConfig      `mapstructure:"log"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// DatabaseConfig locates the inventory store.
type DatabaseConfig struct {
	Path      string `mapstructure:"path"`
	Retention int    `mapstructure:"retention"`
}

// ScriptConfig controls the generated APT reconstruction script.
type ScriptConfig struct {
	Path          string `mapstructure:"path"`
	Keyserver     string `mapstructure:"keyserver"`
	SecondaryArch string `mapstructure:"secondary_arch"`
	AssumeYes     bool   `mapstructure:"assume_yes"`
}

// APTConfig points at the apt and dpkg state read on save.
type APTConfig struct {
	SourcesDir     string   `mapstructure:"sources_dir"`
	ListsDir       string   `mapstructure:"lists_dir"`
	Status         string   `mapstructure:"status"`
	ExtendedStates string   `mapstructure:"extended_states"`
	Keyrings       []string `mapstructure:"keyrings"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// WatchConfig holds settings of the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Sentinel errors for configuration validation.
var (
	// ErrEmptyDatabasePath indicates database.path is unset.
	ErrEmptyDatabasePath = errors.New("database.path must be set")
	// ErrInvalidRetention indicates database.retention is not positive.
	ErrInvalidRetention = errors.New("database.retention must be positive")
	// ErrEmptyScriptPath indicates script.path is unset.
	ErrEmptyScriptPath = errors.New("script.path must be set")
	// ErrEmptyKeyserver indicates script.keyserver is unset.
	ErrEmptyKeyserver = errors.New("script.keyserver must be set")
	// ErrEmptyAPTPath indicates one of the apt paths is unset.
	ErrEmptyAPTPath = errors.New("apt paths must be set")
	// ErrInvalidLogLevel indicates log.level is not debug, info, warn or error.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidDebounce indicates watch.debounce is not positive.
	ErrInvalidDebounce = errors.New("watch.debounce must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return ErrEmptyDatabasePath
	case c.Database.Retention < 1:
		return ErrInvalidRetention
	case c.Script.Path == "":
		return ErrEmptyScriptPath
	case c.Script.Keyserver == "":
		return ErrEmptyKeyserver
	case c.APT.SourcesDir == "" || c.APT.ListsDir == "" || c.APT.Status == "" || c.APT.ExtendedStates == "":
		return ErrEmptyAPTPath
	case c.Watch.Debounce <= 0:
		return ErrInvalidDebounce
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the slog level named by log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrInvalidLogLevel
	}
}
