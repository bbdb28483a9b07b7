package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/inventory"
)

// errUnknownSource is returned for a source argument srsl does not handle.
var errUnknownSource = errors.New("unknown source")

// sourceNames lists the accepted source arguments for completion and help.
var sourceNames = []string{"apt", "snap", "flatpak", "umake", "all"}

// parseSources expands a source argument. An empty argument means all.
func parseSources(args []string) ([]hostenv.Source, error) {
	if len(args) == 0 || args[0] == "all" {
		return hostenv.Sources, nil
	}
	src, err := parseSource(args[0])
	if err != nil {
		return nil, err
	}
	return []hostenv.Source{src}, nil
}

func parseSource(name string) (hostenv.Source, error) {
	for _, s := range hostenv.Sources {
		if string(s) == strings.ToLower(name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w %q: expected one of %s", errUnknownSource, name, strings.Join(sourceNames, ", "))
}

// kindOf maps a source to the key its document is stored under.
func kindOf(s hostenv.Source) string {
	switch s {
	case hostenv.Snap:
		return inventory.KindSnaps
	case hostenv.Flatpak:
		return inventory.KindFlatpaks
	case hostenv.Umake:
		return inventory.KindUmake
	default:
		return inventory.KindDebs
	}
}

// skipNotice describes a source skipped because its tool is missing.
func skipNotice(caps hostenv.Capabilities, s hostenv.Source) string {
	for _, tool := range caps.Missing() {
		if tool.Source == s {
			return fmt.Sprintf("%s not found, skipping (install the '%s' package)", tool.Paths[0], tool.Package)
		}
	}
	return fmt.Sprintf("%s unavailable, skipping", s)
}
