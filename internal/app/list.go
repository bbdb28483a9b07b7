package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/srsl/internal/output"
)

var (
	listHistory string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved inventories",
		Long: `List shows the current inventory of every source with when it was saved
and how much space it takes.

With --history, the retained revisions of one source are listed instead.
A revision can be inspected with 'srsl show <source> --revision <n>'.`,
		Example: `  # What has been saved
  srsl list

  # Earlier APT inventories
  srsl list --history apt`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().StringVar(&listHistory, "history", "", "list the revisions of a source (apt, snap, flatpak, umake)")
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if listHistory != "" {
		src, err := parseSource(listHistory)
		if err != nil {
			return err
		}
		key := kindOf(src)
		infos, err := st.History(key)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderHistoryTable(key, infos, now()))
		return nil
	}

	infos, err := st.List()
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderDocumentTable(infos, now()))
	return nil
}
