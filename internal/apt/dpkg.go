package apt

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/julien-sobczak/deb822"
)

// dependencyFields are the relationship fields that make a package "pulled
// in" by another one.
var dependencyFields = []string{"Pre-Depends", "Depends", "Recommends"}

// ParseStatus parses a dpkg status database and returns the packages that
// are fully installed. Auto-installed flags and origins are left unset.
func ParseStatus(r io.Reader) ([]*Package, error) {
	doc, err := parseControl(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dpkg status: %w", err)
	}

	var packages []*Package
	seen := make(map[string]bool)
	for _, para := range doc.Paragraphs {
		name := para.Value("Package")
		if name == "" || !isInstalled(para.Value("Status")) {
			continue
		}

		arch := para.Value("Architecture")
		// A second architecture of the same package is addressed as name:arch,
		// the way apt names foreign packages.
		if seen[name] {
			name = name + ":" + arch
		}
		seen[name] = true

		var deps []string
		for _, field := range dependencyFields {
			deps = append(deps, ParseDependencies(para.Value(field))...)
		}

		packages = append(packages, &Package{
			Name:         name,
			Version:      para.Value("Version"),
			Architecture: arch,
			Depends:      deps,
		})
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	return packages, nil
}

// isInstalled reports whether a dpkg Status value ("install ok installed")
// describes a configured package.
func isInstalled(status string) bool {
	fields := strings.Fields(status)
	return len(fields) == 3 && fields[2] == "installed"
}

// ParseDependencies extracts package names from a relationship field such
// as "libc6 (>= 2.34), gpgv | gpgv2, python3:any [amd64]". Every alternative
// of an OR group is returned; version constraints, architecture qualifiers
// and restriction lists are dropped.
func ParseDependencies(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}

	var names []string
	for _, group := range strings.Split(field, ",") {
		for _, alt := range strings.Split(group, "|") {
			alt = strings.TrimSpace(alt)
			if i := strings.IndexAny(alt, " ([<"); i >= 0 {
				alt = alt[:i]
			}
			if i := strings.IndexByte(alt, ':'); i >= 0 {
				alt = alt[:i]
			}
			if alt != "" {
				names = append(names, alt)
			}
		}
	}
	return names
}

// AutoStates holds apt's extended_states Auto-Installed flags.
// Keys are "name:arch" for records carrying an architecture and the bare
// name otherwise; the bare name is also set when any architecture of the
// package is automatic so architecture-independent packages resolve.
type AutoStates map[string]bool

// IsAuto reports whether the package was installed automatically.
func (s AutoStates) IsAuto(name, arch string) bool {
	base, _, _ := strings.Cut(name, ":")
	if v, ok := s[base+":"+arch]; ok {
		return v
	}
	return s[base]
}

// ParseExtendedStates parses /var/lib/apt/extended_states.
func ParseExtendedStates(r io.Reader) (AutoStates, error) {
	doc, err := parseControl(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extended states: %w", err)
	}

	states := make(AutoStates)
	for _, para := range doc.Paragraphs {
		name := para.Value("Package")
		if name == "" {
			continue
		}
		auto := strings.TrimSpace(para.Value("Auto-Installed")) == "1"
		arch := para.Value("Architecture")
		if arch == "" {
			states[name] = auto
			continue
		}
		states[name+":"+arch] = auto
		if auto {
			states[name] = true
		}
	}
	return states, nil
}

// parseControl runs the deb822 parser over r. Comment lines are removed
// first since sources files may contain them.
func parseControl(r io.Reader) (deb822.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return deb822.Document{}, err
	}

	var sb strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	parser, err := deb822.NewParser(strings.NewReader(sb.String()))
	if err != nil {
		return deb822.Document{}, err
	}
	return parser.Parse()
}
