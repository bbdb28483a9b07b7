// Package script turns a saved APT inventory into a bash script that
// recreates its repositories, keys and packages.
package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Buffer collects script lines in memory until the script is complete.
type Buffer struct {
	lines []string
}

// Add appends a command line.
func (b *Buffer) Add(line string) {
	b.lines = append(b.lines, line)
}

// Comment appends a "# " comment line.
func (b *Buffer) Comment(text string) {
	b.lines = append(b.lines, "# "+text)
}

// Blank appends an empty line.
func (b *Buffer) Blank() {
	b.lines = append(b.lines, "")
}

// Lines returns a copy of the lines added so far.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// String renders the script with a trailing newline.
func (b *Buffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// WriteTo implements io.WriterTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// WriteFile writes the script to path in one step: a temporary file in
// the same directory is filled and renamed over path.
func (b *Buffer) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := b.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write script: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}
