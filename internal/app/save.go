package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/output"
	"github.com/blackwell-systems/srsl/internal/snapshots"
)

var saveCmd = &cobra.Command{
	Use:   "save [apt|snap|flatpak|umake|all]",
	Short: "Save the installed software of this host",
	Long: `Save records the installed software of one source, or of every source
when none is given.

For APT, every manually installed package is saved together with its
origin. Packages that are only installed as dependencies are left out.
Snaps, flatpaks (with their remotes) and Ubuntu Make applications are
saved as lists.

Sources whose tool is not installed are skipped with a warning. The
previous inventory of a source is kept as a revision, see 'srsl list
--history'.`,
	Example: `  # Save every source
  srsl save

  # Save snaps only
  srsl save snap`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: sourceNames,
	RunE:      runSave,
}

func init() {
	RootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	var errs []error
	for _, src := range sources {
		if !caps.Has(src) {
			fmt.Fprintln(out, output.Warn("%s", skipNotice(caps, src)))
			continue
		}

		spinner := output.NewSpinner(fmt.Sprintf("Saving %s", src))
		spinner.SetWriter(out)
		spinner.Start()

		summary, err := saveSource(cmd.Context(), m, src)
		if err != nil {
			spinner.StopWithMessage(output.Fail("%s: %v", src, err))
			errs = append(errs, fmt.Errorf("failed to save %s: %w", src, err))
			continue
		}
		spinner.StopWithMessage(output.OK("%s: %s", src, summary))
	}
	return errors.Join(errs...)
}

// saveSource saves one source and returns a one-line summary.
func saveSource(ctx context.Context, m *snapshots.Manager, src hostenv.Source) (string, error) {
	switch src {
	case hostenv.APT:
		doc, err := m.SaveAPT(ctx)
		if err != nil {
			return "", err
		}
		s := doc.Stats
		return fmt.Sprintf("%d packages saved (%d official, %d PPA, %d third-party, %d local)",
			s.Total, s.Official, s.PPAs, s.ThirdParty, s.Local), nil
	case hostenv.Snap:
		doc, err := m.SaveSnaps(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d snaps saved", len(doc.Snaps)), nil
	case hostenv.Flatpak:
		doc, err := m.SaveFlatpaks(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d flatpaks saved from %d remotes", len(doc.Refs), len(doc.Remotes)), nil
	case hostenv.Umake:
		doc, err := m.SaveUmake(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d applications saved", len(doc.Apps)), nil
	}
	return "", fmt.Errorf("%w %q", errUnknownSource, src)
}
