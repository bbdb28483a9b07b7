// Package hostenv inspects the host: which package tools are installed and
// which distribution release is running.
package hostenv

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrEnvironmentUnsupported is returned when the host lacks something srsl
// cannot work without.
var ErrEnvironmentUnsupported = errors.New("environment unsupported")

// Source names the package sources srsl handles.
type Source string

const (
	APT     Source = "apt"
	Snap    Source = "snap"
	Flatpak Source = "flatpak"
	Umake   Source = "umake"
)

// Sources lists every source in save and load order.
var Sources = []Source{Snap, Flatpak, Umake, APT}

// Tool is an executable a source depends on.
type Tool struct {
	Source Source
	Paths  []string
	// Package is the distribution package that provides the tool.
	Package string
}

// Tools are probed in this order.
var Tools = []Tool{
	{Source: APT, Paths: []string{"/usr/bin/add-apt-repository"}, Package: "software-properties-common"},
	{Source: Snap, Paths: []string{"/usr/bin/snap"}, Package: "snapd"},
	{Source: Flatpak, Paths: []string{"/usr/bin/flatpak"}, Package: "flatpak"},
	{Source: Umake, Paths: []string{"/usr/bin/umake", "/snap/bin/umake"}, Package: "ubuntu-make"},
}

// Capabilities records which sources are usable on this host.
type Capabilities struct {
	available map[Source]string
	missing   []Tool
}

// Has reports whether the tool for source was found.
func (c Capabilities) Has(s Source) bool {
	_, ok := c.available[s]
	return ok
}

// Path returns the executable found for source.
func (c Capabilities) Path(s Source) string {
	return c.available[s]
}

// Missing returns the tools that were not found.
func (c Capabilities) Missing() []Tool {
	return c.missing
}

// RequireAPT fails when add-apt-repository is unavailable: without it no
// source can be handled.
func (c Capabilities) RequireAPT() error {
	if c.Has(APT) {
		return nil
	}
	return fmt.Errorf("%w: add-apt-repository not found, install the 'software-properties-common' package", ErrEnvironmentUnsupported)
}

// Prober finds executables.
type Prober struct {
	// Executable reports whether path can be executed by the current user.
	Executable func(path string) bool
}

// NewProber returns a Prober that checks X_OK with access(2).
func NewProber() *Prober {
	return &Prober{Executable: func(path string) bool {
		return unix.Access(path, unix.X_OK) == nil
	}}
}

// Detect probes every known tool.
func (p *Prober) Detect() Capabilities {
	c := Capabilities{available: make(map[Source]string)}
	for _, tool := range Tools {
		found := ""
		for _, path := range tool.Paths {
			if p.Executable(path) {
				found = path
				break
			}
		}
		if found == "" {
			c.missing = append(c.missing, tool)
			continue
		}
		c.available[tool.Source] = found
	}
	return c
}
