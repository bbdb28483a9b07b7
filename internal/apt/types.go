// Package apt reads the state of a Debian-family package system: the dpkg
// database, apt-cache policy output, configured repositories and the keys
// apt trusts.
package apt

import (
	"strings"
	"time"
)

// Origin describes one package file that carries a package version: the
// Release metadata of the repository it came from and whether that
// repository is signed.
type Origin struct {
	Origin    string `json:"origin"`
	Label     string `json:"label"`
	Archive   string `json:"archive"`
	Codename  string `json:"codename"`
	Component string `json:"component"`
	Site      string `json:"site"`
	Trusted   bool   `json:"trusted"`
}

// Package is an installed deb package.
type Package struct {
	Name          string
	Version       string
	Architecture  string
	AutoInstalled bool
	// Depends holds the names of direct PreDepends, Depends and Recommends
	// targets, every alternative of an OR group included.
	Depends []string
	// Origins are the package files of the installed version, in apt's order.
	Origins []Origin
}

// PackageFile is one row of a version table in apt-cache policy output,
// e.g. "http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages" or
// "/var/lib/dpkg/status".
type PackageFile struct {
	Priority int
	Path     string
}

// IsPackageIndex reports whether the file is a remote Debian package index
// rather than the dpkg status file.
func (f PackageFile) IsPackageIndex() bool {
	return strings.HasSuffix(f.Path, " Packages")
}

// URI returns the repository URI of a package index, "" otherwise.
func (f PackageFile) URI() string {
	if !f.IsPackageIndex() {
		return ""
	}
	return strings.Fields(f.Path)[0]
}

// Suite returns the distribution part of a package index path
// ("jammy-updates" for "... jammy-updates/main amd64 Packages"). Flat
// repositories keep their trailing slash ("./" for "... ./ Packages").
func (f PackageFile) Suite() string {
	fields := strings.Fields(f.Path)
	if !f.IsPackageIndex() || len(fields) < 3 {
		return ""
	}
	dist := fields[1]
	if strings.HasSuffix(dist, "/") {
		return dist
	}
	if i := strings.LastIndexByte(dist, '/'); i > 0 {
		return dist[:i]
	}
	return dist
}

// releaseBase returns the directory holding the Release files of a
// repository suite. Flat suites end in a slash and live below the URI
// itself.
func releaseBase(uri, suite string) string {
	uri = strings.TrimSuffix(uri, "/") + "/"
	if !strings.HasSuffix(suite, "/") {
		return uri + "dists/" + suite + "/"
	}
	if suite == "/" || suite == "./" {
		return uri
	}
	return uri + strings.TrimPrefix(suite, "./")
}

// TrustKey is a signing key known to apt.
type TrustKey struct {
	ID     string    `json:"key"`
	Name   string    `json:"name"`
	Expiry time.Time `json:"expiry"`
}

// Distro identifies the running Debian-family distribution.
type Distro struct {
	ID          string `json:"id"`
	Codename    string `json:"codename"`
	Release     string `json:"release"`
	Description string `json:"description,omitempty"`
}

// OfficialOrigin returns the Origin field carried by the distribution's own
// archive Release files.
func (d Distro) OfficialOrigin() string {
	return d.ID
}

// String renders the distro the way the user sees it, e.g. "Ubuntu 22.04 (jammy)".
func (d Distro) String() string {
	if d.Release == "" {
		return d.ID + " (" + d.Codename + ")"
	}
	return d.ID + " " + d.Release + " (" + d.Codename + ")"
}
