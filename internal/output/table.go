// Package output provides terminal output utilities for srsl.
//
// This package includes:
//   - Table rendering for stored documents and their contents
//   - Progress reporting for item-by-item loads
//   - Spinners for long save steps
//   - Colored status marks and human-readable sizes and times
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/srsl/internal/flatpak"
	"github.com/blackwell-systems/srsl/internal/inventory"
	"github.com/blackwell-systems/srsl/internal/snap"
	"github.com/blackwell-systems/srsl/internal/store"
	"github.com/blackwell-systems/srsl/internal/umake"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// SetColor turns colored marks on or off for the whole process.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
)

func okMark() string   { return green.Sprint("✓") }
func warnMark() string { return yellow.Sprint("⚠") }
func failMark() string { return red.Sprint("✗") }

// OK formats a success line.
func OK(format string, args ...any) string {
	return okMark() + " " + fmt.Sprintf(format, args...)
}

// Warn formats a warning line.
func Warn(format string, args ...any) string {
	return warnMark() + " " + fmt.Sprintf(format, args...)
}

// Fail formats a failure line.
func Fail(format string, args ...any) string {
	return failMark() + " " + fmt.Sprintf(format, args...)
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false
	return tbl
}

// RenderDocumentTable lists the current document of every stored source.
func RenderDocumentTable(infos []*store.Info, now time.Time) string {
	if len(infos) == 0 {
		return "Nothing saved yet. Run 'srsl save' first.\n"
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Source", "Saved", "Size", "Stored"})
	for _, info := range infos {
		tbl.AppendRow(table.Row{
			info.Key,
			formatRelativeTime(info.SavedAt, now),
			formatSize(info.Size),
			formatSize(info.StoredSize),
		})
	}
	return tbl.Render() + "\n"
}

// RenderHistoryTable lists the retained revisions of one source.
func RenderHistoryTable(key string, infos []*store.Info, now time.Time) string {
	if len(infos) == 0 {
		return fmt.Sprintf("No revisions of %s.\n", key)
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Revision", "Saved", "When", "Size"})
	for _, info := range infos {
		tbl.AppendRow(table.Row{
			info.Revision,
			info.SavedAt.Local().Format("2006-01-02 15:04:05"),
			formatRelativeTime(info.SavedAt, now),
			formatSize(info.Size),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d revisions", len(infos))})
	return tbl.Render() + "\n"
}

// RenderAPTSummary renders the header and per-bucket counts of a document.
func RenderAPTSummary(doc *inventory.Document, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, saved %s by srsl %s\n\n", doc.Distro, formatRelativeTime(doc.SavedAt, now), doc.ToolVersion)

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Bucket", "Packages", "Unresolved"})
	tbl.AppendRow(table.Row{"official", doc.Stats.Official, countOfficialUnresolved(doc)})
	tbl.AppendRow(table.Row{"ppa", doc.Stats.PPAs, countPPAUnresolved(doc)})
	tbl.AppendRow(table.Row{"thirdparty", doc.Stats.ThirdParty, countThirdPartyUnresolved(doc)})
	tbl.AppendRow(table.Row{"local", doc.Stats.Local, ""})
	tbl.AppendFooter(table.Row{"total", doc.Stats.Total, ""})
	sb.WriteString(tbl.Render())
	sb.WriteString("\n")
	return sb.String()
}

// RenderAPTPackages lists every package of a document with its bucket and
// repository.
func RenderAPTPackages(doc *inventory.Document) string {
	if doc.Stats.Total == 0 {
		return "No packages saved.\n"
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Package", "Bucket", "Repository", "Keys"})
	for _, p := range doc.Official {
		tbl.AppendRow(table.Row{p.Name, "official", unresolvedOr(p.Unresolved, p.Archive+"/"+p.Component), ""})
	}
	for _, p := range doc.PPA {
		tbl.AppendRow(table.Row{p.Name, "ppa", unresolvedOr(p.Unresolved, p.Repo), ""})
	}
	for _, p := range doc.ThirdParty {
		tbl.AppendRow(table.Row{p.Name, "thirdparty", unresolvedOr(p.Unresolved, p.Repo), strings.Join(p.Keys, " ")})
	}
	for _, name := range doc.Local {
		tbl.AppendRow(table.Row{name, "local", gray.Sprint("unknown"), ""})
	}
	return tbl.Render() + "\n"
}

// RenderSnapTable lists saved snaps.
func RenderSnapTable(doc *snap.Document) string {
	if len(doc.Snaps) == 0 {
		return "No snaps saved.\n"
	}
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Snap", "Channel", "Revision", "Classic"})
	for _, s := range doc.Snaps {
		classic := ""
		if s.Classic {
			classic = "yes"
		}
		tbl.AppendRow(table.Row{s.Name, s.Channel, s.Revision, classic})
	}
	return tbl.Render() + "\n"
}

// RenderFlatpakTable lists saved remotes and refs.
func RenderFlatpakTable(doc *flatpak.Document) string {
	if len(doc.Remotes) == 0 && len(doc.Refs) == 0 {
		return "No flatpaks saved.\n"
	}

	remotes := newTable()
	remotes.AppendHeader(table.Row{"Remote", "URL"})
	for _, r := range doc.Remotes {
		remotes.AppendRow(table.Row{r.Name, r.URL})
	}

	refs := newTable()
	refs.AppendHeader(table.Row{"Ref", "Kind", "Branch", "Origin"})
	for _, r := range doc.Refs {
		refs.AppendRow(table.Row{r.Name, r.Kind, r.Branch, r.Origin})
	}
	return remotes.Render() + "\n\n" + refs.Render() + "\n"
}

// RenderUmakeTable lists saved Ubuntu Make applications.
func RenderUmakeTable(doc *umake.Document) string {
	if len(doc.Apps) == 0 {
		return "No Ubuntu Make applications saved.\n"
	}
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Category", "Application"})
	for _, a := range doc.Apps {
		tbl.AppendRow(table.Row{a.Category, a.Application})
	}
	return tbl.Render() + "\n"
}

func unresolvedOr(unresolved bool, repo string) string {
	if unresolved {
		return yellow.Sprint("⚠ unresolved")
	}
	return repo
}

func countOfficialUnresolved(doc *inventory.Document) int {
	n := 0
	for _, p := range doc.Official {
		if p.Unresolved {
			n++
		}
	}
	return n
}

func countPPAUnresolved(doc *inventory.Document) int {
	n := 0
	for _, p := range doc.PPA {
		if p.Unresolved {
			n++
		}
	}
	return n
}

func countThirdPartyUnresolved(doc *inventory.Document) int {
	n := 0
	for _, p := range doc.ThirdParty {
		if p.Unresolved {
			n++
		}
	}
	return n
}

// formatSize renders a byte count, e.g. "12 kB".
func formatSize(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// formatRelativeTime renders t relative to now, e.g. "3 hours ago".
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
