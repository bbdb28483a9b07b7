// Package provenance decides where each manually installed package came
// from and recovers the repository line and signing keys needed to
// install it again.
package provenance

import (
	"sort"
	"strings"

	"github.com/blackwell-systems/srsl/internal/apt"
)

// Bucket is the provenance category of a package.
type Bucket int

const (
	Official Bucket = iota
	ThirdPartyPPA
	ThirdPartyRepo
	Local
)

func (b Bucket) String() string {
	switch b {
	case Official:
		return "official"
	case ThirdPartyPPA:
		return "ppa"
	case ThirdPartyRepo:
		return "thirdparty"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// ppaOriginPrefix starts the Origin field of every Launchpad PPA Release file.
const ppaOriginPrefix = "LP-PPA"

// Classification holds the manually installed packages split by bucket.
// Each list is sorted by package name.
type Classification struct {
	Official   []*apt.Package
	PPA        []*apt.Package
	ThirdParty []*apt.Package
	Local      []*apt.Package
}

// Total returns the number of classified packages.
func (c Classification) Total() int {
	return len(c.Official) + len(c.PPA) + len(c.ThirdParty) + len(c.Local)
}

// SelectManual returns the installed packages the user asked for: those
// not marked automatic, minus any that another such package depends on.
// Packages pulled in as a dependency are dropped even when they were also
// requested explicitly; apt installs them again anyway.
func SelectManual(installed []*apt.Package) []*apt.Package {
	var manual []*apt.Package
	for _, pkg := range installed {
		if !pkg.AutoInstalled {
			manual = append(manual, pkg)
		}
	}

	depended := make(map[string]bool)
	for _, pkg := range manual {
		for _, dep := range pkg.Depends {
			depended[dep] = true
		}
	}

	selected := make([]*apt.Package, 0, len(manual))
	for _, pkg := range manual {
		if !depended[pkg.Name] {
			selected = append(selected, pkg)
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Name < selected[j].Name
	})
	return selected
}

// BucketOf classifies a package by the first origin of its installed
// version. officialOrigin is the Origin label of the distribution archive
// ("Ubuntu", "Debian").
func BucketOf(pkg *apt.Package, officialOrigin string) Bucket {
	if len(pkg.Origins) == 0 {
		return Local
	}

	o := pkg.Origins[0]
	switch {
	case o.Origin == officialOrigin:
		return Official
	case o.Trusted && o.Archive != "now" && strings.HasPrefix(o.Origin, ppaOriginPrefix):
		return ThirdPartyPPA
	case o.Trusted && o.Archive != "now":
		return ThirdPartyRepo
	default:
		return Local
	}
}

// Classify places every package in exactly one bucket.
func Classify(packages []*apt.Package, officialOrigin string) Classification {
	sorted := make([]*apt.Package, len(packages))
	copy(sorted, packages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var c Classification
	for _, pkg := range sorted {
		switch BucketOf(pkg, officialOrigin) {
		case Official:
			c.Official = append(c.Official, pkg)
		case ThirdPartyPPA:
			c.PPA = append(c.PPA, pkg)
		case ThirdPartyRepo:
			c.ThirdParty = append(c.ThirdParty, pkg)
		default:
			c.Local = append(c.Local, pkg)
		}
	}
	return c
}
