package script

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/srsl/internal/inventory"
)

// Options tunes the generated commands.
type Options struct {
	// SecondaryArch is enabled with dpkg --add-architecture before official
	// packages are installed. Empty skips the step.
	SecondaryArch string
	// Keyserver serves third-party signing keys.
	Keyserver string
	// AssumeYes adds -y to add-apt-repository and apt install.
	AssumeYes bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		SecondaryArch: "i386",
		Keyserver:     "keyserver.ubuntu.com",
	}
}

// Synthesize renders doc as an install script. Sections run in a fixed
// order: official packages, PPAs, third-party repositories, then a list of
// local packages as comments. Each section registers its repositories,
// refreshes the package lists once and installs its packages with a
// single command. Repository and key steps report failures and continue.
func Synthesize(doc *inventory.Document, opts Options) *Buffer {
	b := &Buffer{}

	b.Add("#!/bin/bash")
	b.Comment(fmt.Sprintf("Generated by srsl %s from %s, saved %s.", doc.ToolVersion, doc.Distro, doc.SavedAt.Format("2006-01-02 15:04 MST")))
	// Same codename source as the save side: derivatives report their
	// Ubuntu base in UBUNTU_CODENAME.
	b.Add(fmt.Sprintf(
		`[ "$(. /etc/os-release && echo "${UBUNTU_CODENAME:-$VERSION_CODENAME}")" = %s ] || { echo 'Error: this script was generated for %s %s. Script will stop.'; exit 1; }`,
		shellQuote(doc.Distro.Codename), doc.Distro.ID, doc.Distro.Codename))

	wrote := false
	wrote = official(b, doc, opts) || wrote
	wrote = ppas(b, doc, opts) || wrote
	wrote = thirdParty(b, doc, opts) || wrote
	wrote = local(b, doc) || wrote

	if !wrote {
		b.Blank()
		b.Comment("Nothing to install.")
	}
	return b
}

func official(b *Buffer, doc *inventory.Document, opts Options) bool {
	if len(doc.Official) == 0 {
		return false
	}

	b.Blank()
	b.Comment(fmt.Sprintf("Official packages (%d)", len(doc.Official)))
	if opts.SecondaryArch != "" {
		b.Add("dpkg --add-architecture " + opts.SecondaryArch)
	}

	var components, names unique
	for _, p := range doc.Official {
		components.add(p.Component)
		names.add(p.Name)
	}
	for _, c := range components {
		b.Add(orWarn(addRepo(opts)+" "+c, "failed to enable component "+c))
	}
	b.Add("apt-get update")
	b.Add(install(opts, names))
	return true
}

func ppas(b *Buffer, doc *inventory.Document, opts Options) bool {
	if len(doc.PPA) == 0 {
		return false
	}

	b.Blank()
	b.Comment(fmt.Sprintf("Launchpad PPA packages (%d)", len(doc.PPA)))

	var repos, names unique
	for _, p := range doc.PPA {
		if p.Unresolved || p.Repo == "" {
			b.Comment(p.Name + ": PPA unknown, install it manually")
			continue
		}
		repos.add(p.Repo)
		names.add(p.Name)
	}
	if len(names) == 0 {
		return true
	}

	for _, r := range repos {
		b.Add(orWarn(addRepo(opts)+" "+r, "failed to add "+r))
	}
	b.Add("apt-get update")
	b.Add(install(opts, names))
	return true
}

func thirdParty(b *Buffer, doc *inventory.Document, opts Options) bool {
	if len(doc.ThirdParty) == 0 {
		return false
	}

	b.Blank()
	b.Comment(fmt.Sprintf("Third-party repository packages (%d)", len(doc.ThirdParty)))

	var repos, names unique
	for _, p := range doc.ThirdParty {
		if p.Unresolved || p.Repo == "" {
			b.Comment(p.Name + ": repository unknown, install it manually")
			continue
		}
		repos.add(p.Repo)
		names.add(p.Name)
	}
	if len(names) == 0 {
		return true
	}

	for _, k := range doc.UniqueKeys() {
		b.Add(orWarn(
			fmt.Sprintf("apt-key adv --keyserver %s --recv %s", opts.Keyserver, k.ID),
			"failed to import key "+k.ID))
	}
	for _, r := range repos {
		b.Add(orWarn(addRepo(opts)+" "+shellQuote(r), "failed to add repository "+r))
	}
	b.Add("apt-get update")
	b.Add(install(opts, names))
	return true
}

func local(b *Buffer, doc *inventory.Document) bool {
	if len(doc.Local) == 0 {
		return false
	}

	b.Blank()
	b.Comment(fmt.Sprintf("Local packages (%d): their origin is unknown, download and install them yourself:", len(doc.Local)))
	for _, name := range doc.Local {
		b.Comment("  " + name)
	}
	return true
}

func addRepo(opts Options) string {
	if opts.AssumeYes {
		return "add-apt-repository -y"
	}
	return "add-apt-repository"
}

func install(opts Options, names unique) string {
	cmd := "apt install "
	if opts.AssumeYes {
		cmd = "apt install -y "
	}
	return cmd + strings.Join(names, " ")
}

// orWarn reports a failed step on stderr and lets the script go on.
func orWarn(cmd, msg string) string {
	return cmd + " || echo " + shellQuote("Warning: "+msg) + " >&2"
}

// shellQuote wraps s in single quotes for bash.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// unique is an insertion-ordered set of non-empty strings.
type unique []string

func (u *unique) add(s string) {
	if s == "" {
		return
	}
	for _, v := range *u {
		if v == s {
			return
		}
	}
	*u = append(*u, s)
}
