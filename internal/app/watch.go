package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/srsl/internal/output"
	"github.com/blackwell-systems/srsl/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-save the APT inventory whenever packages or sources change",
		Long: `Watch follows the dpkg status database, apt's extended states and the
APT source lists, and saves the APT inventory again after they change.

Changes are debounced (watch.debounce, 30s by default) so that one apt
run leads to a single save. Every save is kept as a revision.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  srsl watch

  # Run as background daemon
  srsl watch --daemon

  # Stop running daemon
  srsl watch --stop`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.local/share/srsl/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.local/share/srsl/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	watchCmd.Flags().MarkHidden("daemon-child")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		path, err := dataFile("watch.pid")
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = path
	}
	if watchLogFile == "" {
		path, err := dataFile("watch.log")
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = path
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}

	if err := prober.Detect().RequireAPT(); err != nil {
		return err
	}

	if watchDaemon {
		return startWatchDaemon(cmd)
	}
	return runWatcher(cmd)
}

func stopWatchDaemon(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	err := watcher.StopDaemon(watchPIDFile)
	if errors.Is(err, watcher.ErrDaemonNotRunning) {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Fprintln(out, output.OK("Daemon stopped"))
	return nil
}

// daemonArgs are the arguments the daemon child is started with.
func daemonArgs() []string {
	args := []string{"watch", "--daemon-child", "--pid-file", watchPIDFile}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return args
}

func startWatchDaemon(cmd *cobra.Command) error {
	pid, err := watcher.StartDaemon(watchPIDFile, watchLogFile, daemonArgs())
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.OK("Daemon started (PID %d)", pid))
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: srsl watch --stop\n")
	return nil
}

// runWatcher watches in the current process until interrupted. The daemon
// child takes this path too and owns its PID file.
func runWatcher(cmd *cobra.Command) error {
	m, st, err := openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	targets := watcher.Targets{
		Status:         cfg.APT.Status,
		ExtendedStates: cfg.APT.ExtendedStates,
		SourcesDir:     cfg.APT.SourcesDir,
	}
	w, err := watcher.New(targets.Paths(), cfg.Watch.Debounce, func(ctx context.Context) error {
		doc, err := m.SaveAPT(ctx)
		if err != nil {
			return err
		}
		logger.Info("apt inventory saved", "packages", doc.Stats.Total)
		return nil
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemonChild {
		if err := watcher.WritePIDFile(watchPIDFile, os.Getpid()); err != nil {
			return err
		}
		defer watcher.RemovePIDFile(watchPIDFile)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching APT state, saving %s after changes settle (press Ctrl+C to stop)...\n", cfg.Watch.Debounce)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("watcher started", "debounce", cfg.Watch.Debounce)
	if err := w.Run(ctx); err != nil {
		return err
	}
	logger.Info("watcher stopped")
	return nil
}
