package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/srsl/internal/flatpak"
	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/inventory"
	"github.com/blackwell-systems/srsl/internal/output"
	"github.com/blackwell-systems/srsl/internal/snap"
	"github.com/blackwell-systems/srsl/internal/store"
	"github.com/blackwell-systems/srsl/internal/umake"
)

var (
	showFormat   string
	showRevision int64

	showCmd = &cobra.Command{
		Use:   "show <apt|snap|flatpak|umake>",
		Short: "Show a saved inventory",
		Long: `Show prints the saved inventory of one source.

The table format summarises the document; yaml and json print it in
full, exactly as stored. Use --revision with a number from 'srsl list
--history' to inspect an earlier inventory.`,
		Example: `  # Saved APT packages grouped by origin
  srsl show apt

  # Full flatpak document as YAML
  srsl show flatpak --format yaml

  # An earlier revision
  srsl show apt --revision 12 --format json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: sourceNames[:len(sourceNames)-1],
		RunE:      runShow,
	}
)

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "o", "table", "output format: table, yaml, json")
	showCmd.Flags().Int64Var(&showRevision, "revision", 0, "show a past revision instead of the current inventory")
	RootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	src, err := parseSource(args[0])
	if err != nil {
		return err
	}
	switch showFormat {
	case "table", "yaml", "json":
	default:
		return fmt.Errorf("unknown format %q: expected table, yaml or json", showFormat)
	}

	m, st, err := openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	kind := kindOf(src)
	data, info, err := m.Fetch(kind, showRevision)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch showFormat {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("failed to format document: %w", err)
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(out)
		return err
	case "yaml":
		text, err := jsonToYAML(data)
		if err != nil {
			return err
		}
		_, err = out.Write(text)
		return err
	}
	return renderTable(out, src, kind, data, info)
}

func renderTable(out io.Writer, src hostenv.Source, kind string, data []byte, info *store.Info) error {
	if src == hostenv.APT {
		var doc inventory.Document
		if err := inventory.Decode(kind, data, &doc); err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderAPTSummary(&doc, now()))
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderAPTPackages(&doc))
		return nil
	}

	fmt.Fprintf(out, "%s saved %s\n\n", src, humanize.RelTime(info.SavedAt, now(), "ago", "from now"))
	switch src {
	case hostenv.Snap:
		var doc snap.Document
		if err := inventory.Decode(kind, data, &doc); err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderSnapTable(&doc))
	case hostenv.Flatpak:
		var doc flatpak.Document
		if err := inventory.Decode(kind, data, &doc); err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderFlatpakTable(&doc))
	case hostenv.Umake:
		var doc umake.Document
		if err := inventory.Decode(kind, data, &doc); err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderUmakeTable(&doc))
	}
	return nil
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping the
// key order of the stored document.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// clearStyle drops the flow and quoting styles JSON input carries. The
// encoder still quotes strings that would otherwise read as another type.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
