package apt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadSources returns the active binary repository lines configured under
// an apt configuration directory (normally /etc/apt): sources.list first,
// then sources.list.d in lexical order. One-line .list files are read as is;
// deb822 .sources files are converted to the one-line form.
func ReadSources(dir string) ([]string, error) {
	var lines []string

	main := filepath.Join(dir, "sources.list")
	data, err := os.ReadFile(main)
	switch {
	case err == nil:
		lines = append(lines, parseListFile(bytes.NewReader(data))...)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", main, err)
	}

	partsDir := filepath.Join(dir, "sources.list.d")
	entries, err := os.ReadDir(partsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lines, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", partsDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".list" || ext == ".sources" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(partsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if filepath.Ext(name) == ".list" {
			lines = append(lines, parseListFile(bytes.NewReader(data))...)
			continue
		}
		converted, err := parseSourcesFile(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		lines = append(lines, converted...)
	}

	return lines, nil
}

// parseListFile returns the deb lines of a one-line-style sources file.
func parseListFile(r io.Reader) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if fields := strings.Fields(line); fields[0] != "deb" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// parseSourcesFile converts deb822 stanzas into one line per URI and suite.
func parseSourcesFile(r io.Reader) ([]string, error) {
	doc, err := parseControl(r)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, para := range doc.Paragraphs {
		if strings.EqualFold(strings.TrimSpace(para.Value("Enabled")), "no") {
			continue
		}
		if !containsField(para.Value("Types"), "deb") {
			continue
		}

		var opts []string
		if arch := strings.Fields(para.Value("Architectures")); len(arch) > 0 {
			opts = append(opts, "arch="+strings.Join(arch, ","))
		}
		if trusted := strings.TrimSpace(para.Value("Trusted")); trusted != "" {
			opts = append(opts, "trusted="+trusted)
		}
		// An inline armored key cannot be expressed in one-line form.
		if signedBy := strings.TrimSpace(para.Value("Signed-By")); signedBy != "" && !strings.Contains(signedBy, "\n") {
			opts = append(opts, "signed-by="+signedBy)
		}

		head := "deb"
		if len(opts) > 0 {
			head = "deb [" + strings.Join(opts, " ") + "]"
		}
		components := strings.Join(strings.Fields(para.Value("Components")), " ")

		for _, uri := range strings.Fields(para.Value("URIs")) {
			for _, suite := range strings.Fields(para.Value("Suites")) {
				line := head + " " + uri + " " + suite
				if components != "" {
					line += " " + components
				}
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

func containsField(s, want string) bool {
	for _, f := range strings.Fields(s) {
		if f == want {
			return true
		}
	}
	return false
}

// SourceEntry is a one-line deb source split into its parts.
type SourceEntry struct {
	Options    map[string]string
	URI        string
	Suite      string
	Components []string
}

// ParseSourceLine splits a line as returned by ReadSources, e.g.
// "deb [arch=amd64 signed-by=/etc/apt/keyrings/docker.gpg] https://download.docker.com/linux/ubuntu jammy stable".
func ParseSourceLine(line string) (SourceEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "deb" {
		return SourceEntry{}, false
	}
	fields = fields[1:]

	entry := SourceEntry{Options: make(map[string]string)}
	if strings.HasPrefix(fields[0], "[") {
		end := -1
		for i, f := range fields {
			if strings.HasSuffix(f, "]") {
				end = i
				break
			}
		}
		if end < 0 {
			return SourceEntry{}, false
		}
		for _, opt := range fields[:end+1] {
			opt = strings.Trim(opt, "[]")
			if key, value, ok := strings.Cut(opt, "="); ok {
				entry.Options[key] = value
			}
		}
		fields = fields[end+1:]
	}
	if len(fields) < 2 {
		return SourceEntry{}, false
	}

	entry.URI = fields[0]
	entry.Suite = fields[1]
	entry.Components = fields[2:]
	return entry, true
}
