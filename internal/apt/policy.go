package apt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// StatusFile is the path apt prints for the dpkg status pseudo-index.
const StatusFile = "/var/lib/dpkg/status"

// ParseFileOrigins parses the "Package files:" section printed by a bare
// `apt-cache policy` and returns the Release metadata of every package
// file keyed by its path. Trust is not part of that output and is left false.
func ParseFileOrigins(r io.Reader) (map[string]Origin, error) {
	origins := make(map[string]Origin)

	var current string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Section headers start at column zero.
		if !strings.HasPrefix(line, " ") {
			if trimmed != "Package files:" {
				current = ""
				if len(origins) > 0 {
					break
				}
			}
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "release "):
			if current == "" {
				continue
			}
			o := origins[current]
			applyReleaseFields(&o, strings.TrimPrefix(trimmed, "release "))
			origins[current] = o
		case strings.HasPrefix(trimmed, "origin "):
			if current == "" {
				continue
			}
			o := origins[current]
			o.Site = strings.TrimSpace(strings.TrimPrefix(trimmed, "origin "))
			origins[current] = o
		default:
			file, ok := parseFileRow(trimmed)
			if !ok {
				continue
			}
			current = file.Path
			if _, exists := origins[current]; !exists {
				origins[current] = Origin{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read apt-cache policy output: %w", err)
	}

	return origins, nil
}

// applyReleaseFields decodes "v=22.04,o=Ubuntu,a=jammy,n=jammy,l=Ubuntu,c=main,b=amd64".
// A segment without "=" belongs to the previous value, since labels may
// contain commas.
func applyReleaseFields(o *Origin, spec string) {
	var lastKey string
	values := make(map[string]string)
	for _, part := range strings.Split(spec, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || len(key) != 1 {
			if lastKey != "" {
				values[lastKey] += "," + part
			}
			continue
		}
		lastKey = key
		values[key] = value
	}

	o.Origin = values["o"]
	o.Label = values["l"]
	o.Archive = values["a"]
	o.Codename = values["n"]
	o.Component = values["c"]
}

// parseFileRow parses "500 http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages".
func parseFileRow(s string) (PackageFile, bool) {
	prio, path, ok := strings.Cut(s, " ")
	if !ok {
		return PackageFile{}, false
	}
	n, err := strconv.Atoi(prio)
	if err != nil {
		return PackageFile{}, false
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return PackageFile{}, false
	}
	return PackageFile{Priority: n, Path: path}, true
}

// Version is one entry of a package's version table.
type Version struct {
	Version   string
	Installed bool
	Files     []PackageFile
}

// Policy is the parsed `apt-cache policy <name>` block of one package.
type Policy struct {
	Name      string
	Installed string
	Candidate string
	Versions  []Version
}

// InstalledFiles returns the package files of the installed version.
func (p *Policy) InstalledFiles() []PackageFile {
	return p.filesOf(p.Installed)
}

// CandidateFiles returns the package files of the candidate version.
func (p *Policy) CandidateFiles() []PackageFile {
	return p.filesOf(p.Candidate)
}

func (p *Policy) filesOf(version string) []PackageFile {
	if version == "" || version == "(none)" {
		return nil
	}
	for _, v := range p.Versions {
		if v.Version == version {
			return v.Files
		}
	}
	return nil
}

// ParsePolicies parses the output of `apt-cache policy <name>...` into one
// Policy per package, keyed by package name.
func ParsePolicies(r io.Reader) (map[string]*Policy, error) {
	policies := make(map[string]*Policy)

	var current *Policy
	var version *Version
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(line, " ") && strings.HasSuffix(trimmed, ":") {
			current = &Policy{Name: strings.TrimSuffix(trimmed, ":")}
			version = nil
			policies[current.Name] = current
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "Installed:"):
			current.Installed = strings.TrimSpace(strings.TrimPrefix(trimmed, "Installed:"))
		case strings.HasPrefix(trimmed, "Candidate:"):
			current.Candidate = strings.TrimSpace(strings.TrimPrefix(trimmed, "Candidate:"))
		case strings.HasPrefix(trimmed, "Version table:"):
		default:
			marked := strings.HasPrefix(trimmed, "***")
			fields := strings.Fields(strings.TrimPrefix(trimmed, "***"))
			if len(fields) == 2 && isInt(fields[1]) {
				current.Versions = append(current.Versions, Version{Version: fields[0], Installed: marked})
				version = &current.Versions[len(current.Versions)-1]
				continue
			}
			if version == nil {
				continue
			}
			if file, ok := parseFileRow(trimmed); ok {
				version.Files = append(version.Files, file)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read apt-cache policy output: %w", err)
	}

	return policies, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
