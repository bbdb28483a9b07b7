package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/srsl/internal/apt"
)

const (
	configName = "config"
	configType = "yaml"
	envPrefix  = "SRSL"
)

// Default settings. The apt paths default to apt.DefaultPaths.
const (
	DefaultScriptPath    = "apt.sh"
	DefaultKeyserver     = "keyserver.ubuntu.com"
	DefaultSecondaryArch = "i386"
	DefaultRetention     = 10
	DefaultLogLevel      = "info"
	DefaultWatchDebounce = 30 * time.Second
	DefaultSourcesDir    = "/etc/apt"
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise config.yaml is looked up in the srsl config directory.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if err := applyDefaults(v); err != nil {
		return nil, err
	}

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) error {
	dataDir, err := DataDir()
	if err != nil {
		return fmt.Errorf("failed to locate data directory: %w", err)
	}

	v.SetDefault("database.path", filepath.Join(dataDir, "srsl.db"))
	v.SetDefault("database.retention", DefaultRetention)

	v.SetDefault("script.path", DefaultScriptPath)
	v.SetDefault("script.keyserver", DefaultKeyserver)
	v.SetDefault("script.secondary_arch", DefaultSecondaryArch)
	v.SetDefault("script.assume_yes", false)

	paths := apt.DefaultPaths()
	v.SetDefault("apt.sources_dir", DefaultSourcesDir)
	v.SetDefault("apt.lists_dir", paths.ListsDir)
	v.SetDefault("apt.status", paths.Status)
	v.SetDefault("apt.extended_states", paths.ExtendedStates)
	v.SetDefault("apt.keyrings", apt.DefaultKeyringPaths)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("watch.debounce", DefaultWatchDebounce)
	return nil
}
