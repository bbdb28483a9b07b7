package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/command"
	"github.com/blackwell-systems/srsl/internal/config"
	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/script"
	"github.com/blackwell-systems/srsl/internal/snapshots"
	"github.com/blackwell-systems/srsl/internal/store"
)

var (
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger = slog.Default()

	// Host access, replaced in tests.
	runner       command.Runner = command.Exec{}
	prober                      = hostenv.NewProber()
	detectDistro                = hostenv.DetectDistro
	now                         = time.Now

	// RootCmd is the root command for srsl
	RootCmd = &cobra.Command{
		Use:   "srsl",
		Short: "Save and restore the software installed on Debian-family hosts",
		Long: `srsl records where every manually installed package came from so the
same software can be installed again on a fresh machine.

APT packages are saved with their origin: the distribution archive, a
Launchpad PPA, a third-party repository with its signing keys, or a local
.deb. Loading writes a shell script that adds the repositories and keys and
installs the packages. Snaps, flatpaks and Ubuntu Make applications are
saved as lists and installed directly on load.

Loading refuses to run on a different distribution release than the one
the APT inventory was saved on.`,
		Example: `  # Save everything
  srsl save

  # Save only APT packages
  srsl save apt

  # Restore on a fresh install, then run the generated script
  srsl load
  sudo ./apt.sh

  # Inspect what was saved
  srsl list
  srsl show apt`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/srsl/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.local/share/srsl/srsl.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command. An unknown verb prints usage as well as
// the error.
func Execute() error {
	cmd, err := RootCmd.ExecuteC()
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		cmd.Usage()
	}
	return err
}

// setup loads the configuration and installs the logger before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.Database.Path = dbPath
	}

	level, err := loaded.LogLevel()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}

	cfg = loaded
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// openStore opens the inventory database, creating it on first use.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}
	st.SetRetention(cfg.Database.Retention)
	return st, nil
}

// openManager opens the store and wires a snapshot manager to it. The
// caller closes the store.
func openManager() (*snapshots.Manager, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	opts := snapshots.Options{
		Apt: apt.Paths{
			Status:         cfg.APT.Status,
			ExtendedStates: cfg.APT.ExtendedStates,
			ListsDir:       cfg.APT.ListsDir,
		},
		SourcesDir:   cfg.APT.SourcesDir,
		KeyringPaths: cfg.APT.Keyrings,
		Version:      Version,
		Script: script.Options{
			SecondaryArch: cfg.Script.SecondaryArch,
			Keyserver:     cfg.Script.Keyserver,
			AssumeYes:     cfg.Script.AssumeYes,
		},
	}

	m := snapshots.New(st, runner, opts, logger)
	m.DetectDistro = detectDistro
	m.Now = now
	return m, st, nil
}

// dataFile returns path inside the srsl data directory, creating the
// directory when needed.
func dataFile(name string) (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}
