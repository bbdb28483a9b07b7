package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/output"
	"github.com/blackwell-systems/srsl/internal/snapshots"
)

var (
	loadScript string

	loadCmd = &cobra.Command{
		Use:   "load [apt|snap|flatpak|umake|all]",
		Short: "Restore the saved software on this host",
		Long: `Load restores what 'srsl save' recorded, for one source or for every
source when none is given.

APT packages are not installed directly: load writes a shell script
that enables the secondary architecture, adds the PPAs and third-party
repositories with their keys, and installs every package. Review it and
run it as root. The script is only written when this host runs the same
distribution release the inventory was saved on.

Snaps, flatpaks and Ubuntu Make applications are installed one by one.
An item that fails to install is reported and the rest continue.`,
		Example: `  # Restore everything, then run the APT script
  srsl load
  sudo ./apt.sh

  # Write the APT script somewhere else
  srsl load apt --script /tmp/restore.sh`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: sourceNames,
		RunE:      runLoad,
	}
)

func init() {
	loadCmd.Flags().StringVar(&loadScript, "script", "", "path of the generated APT script (default from config: apt.sh)")
	RootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	sources, err := parseSources(args)
	if err != nil {
		cmd.Usage()
		return err
	}

	caps := prober.Detect()
	if err := caps.RequireAPT(); err != nil {
		return err
	}

	m, st, err := openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	scriptPath := loadScript
	if scriptPath == "" {
		scriptPath = cfg.Script.Path
	}

	out := cmd.OutOrStdout()
	var errs []error
	for _, src := range sources {
		if !caps.Has(src) {
			fmt.Fprintln(out, output.Warn("%s", skipNotice(caps, src)))
			continue
		}
		if err := loadSource(cmd.Context(), out, m, src, scriptPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to load %s: %w", src, err))
		}
	}
	return errors.Join(errs...)
}

func loadSource(ctx context.Context, out io.Writer, m *snapshots.Manager, src hostenv.Source, scriptPath string) error {
	var (
		report *snapshots.Report
		err    error
	)
	switch src {
	case hostenv.APT:
		doc, err := m.LoadAPT(ctx, scriptPath)
		if err != nil {
			fmt.Fprintln(out, output.Fail("apt: %v", err))
			return err
		}
		fmt.Fprintln(out, output.OK("apt: wrote %s for %d packages", scriptPath, doc.Stats.Total))
		fmt.Fprintf(out, "  Review it, then run: sudo %s\n", scriptCommand(scriptPath))
		return nil
	case hostenv.Snap:
		report, err = m.LoadSnaps(ctx)
	case hostenv.Flatpak:
		report, err = m.LoadFlatpaks(ctx)
	case hostenv.Umake:
		report, err = m.LoadUmake(ctx)
	default:
		return fmt.Errorf("%w %q", errUnknownSource, src)
	}
	if err != nil {
		fmt.Fprintln(out, output.Fail("%s: %v", src, err))
		return err
	}

	printReport(out, report)
	return report.Err()
}

// printReport lists every item of a load with its outcome.
func printReport(out io.Writer, r *snapshots.Report) {
	p := output.NewProgress(len(r.Installed)+len(r.Failures), string(r.Source))
	p.SetWriter(out)
	for _, item := range r.Installed {
		p.Step(item, nil)
	}
	for _, f := range r.Failures {
		p.Step(f.Item, f.Err)
	}
	p.Finish(len(r.Failures))
}

// scriptCommand returns how a shell would run path.
func scriptCommand(path string) string {
	if strings.ContainsRune(path, '/') {
		return path
	}
	return "./" + path
}
