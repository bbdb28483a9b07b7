// Package config loads srsl settings from file, environment and defaults.
package config

import (
	"os"
	"path/filepath"
)

// appName names the per-user config and data directories.
const appName = "srsl"

// Dir returns the srsl config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/srsl if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the srsl data directory, respecting XDG_DATA_HOME.
// Defaults to ~/.local/share/srsl if XDG_DATA_HOME is not set.
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, appName), nil
}
