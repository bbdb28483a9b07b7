package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/output"
	"github.com/blackwell-systems/srsl/internal/watcher"
)

// errDiagnosticsFailed is returned when doctor finds a critical issue.
var errDiagnosticsFailed = errors.New("diagnostics failed")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check system health",
	Long: `Runs diagnostic checks on this host and the srsl database.

Checks:
  • add-apt-repository is installed (required)
  • snap, flatpak and umake are installed (optional)
  • The distribution release can be identified
  • The database exists and what was last saved
  • Whether the watch daemon is running`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running srsl diagnostics...")
	fmt.Fprintln(out)

	criticalIssues := 0
	warningIssues := 0

	// Tools
	caps := prober.Detect()
	for _, tool := range hostenv.Tools {
		if caps.Has(tool.Source) {
			fmt.Fprintln(out, output.OK("%s: %s", tool.Source, caps.Path(tool.Source)))
			continue
		}
		if tool.Source == hostenv.APT {
			fmt.Fprintln(out, output.Fail("add-apt-repository not found"))
			fmt.Fprintf(out, "  Action: sudo apt install %s\n", tool.Package)
			criticalIssues++
			continue
		}
		fmt.Fprintln(out, output.Warn("%s not installed, it will be skipped", tool.Source))
		warningIssues++
	}

	// Distribution
	distro, err := detectDistro(cmd.Context())
	if err != nil {
		fmt.Fprintln(out, output.Fail("Distribution: %v", err))
		criticalIssues++
	} else {
		fmt.Fprintln(out, output.OK("Distribution: %s", distro))
	}

	// Database
	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		fmt.Fprintln(out, output.Warn("Database not found at: %s", cfg.Database.Path))
		fmt.Fprintln(out, "  Action: Run 'srsl save' to create it")
		warningIssues++
	} else {
		fmt.Fprintln(out, output.OK("Database found: %s", cfg.Database.Path))
		warningIssues += checkSaved(cmd)
	}

	// Watch daemon
	if pidFile, err := dataFile("watch.pid"); err == nil {
		if running, pid, err := watcher.IsDaemonRunning(pidFile); err == nil && running {
			fmt.Fprintln(out, output.OK("Watch daemon running (PID %d)", pid))
		} else {
			fmt.Fprintln(out, "  Watch daemon not running")
		}
	}

	fmt.Fprintln(out)
	if criticalIssues > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return errDiagnosticsFailed
	}
	if warningIssues > 0 {
		fmt.Fprintf(out, "Found %d warning(s). srsl can run with the sources available.\n", warningIssues)
		return nil
	}
	fmt.Fprintln(out, output.OK("All checks passed!"))
	return nil
}

// checkSaved reports the last save of every source and returns the number
// of warnings printed.
func checkSaved(cmd *cobra.Command) int {
	out := cmd.OutOrStdout()

	st, err := openStore()
	if err != nil {
		fmt.Fprintln(out, output.Warn("Cannot open database: %v", err))
		return 1
	}
	defer st.Close()

	infos, err := st.List()
	if err != nil {
		fmt.Fprintln(out, output.Warn("Cannot read database: %v", err))
		return 1
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, output.Warn("Nothing saved yet"))
		fmt.Fprintln(out, "  Action: Run 'srsl save'")
		return 1
	}
	for _, info := range infos {
		fmt.Fprintln(out, output.OK("%s saved %s", info.Key, humanize.RelTime(info.SavedAt, now(), "ago", "from now")))
	}
	return 0
}
