// Package snap saves and restores installed snaps.
package snap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blackwell-systems/srsl/internal/command"
)

// Snap is an installed snap.
type Snap struct {
	Name     string `json:"name"`
	Channel  string `json:"channel"`
	Revision string `json:"revision"`
	Classic  bool   `json:"classic"`
}

// Document is the saved snap inventory.
type Document struct {
	SavedAt time.Time `json:"saved_at"`
	Snaps   []Snap    `json:"snaps"`
}

// ParseList parses `snap list` output:
//
//	Name     Version   Rev    Tracking       Publisher   Notes
//	code     1.86.2    155    latest/stable  vscode✓     classic
func ParseList(r io.Reader) ([]Snap, error) {
	snaps := []Snap{}
	scanner := bufio.NewScanner(r)
	header := true
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if header {
			header = false
			if fields[0] == "Name" {
				continue
			}
		}
		if len(fields) < 6 {
			continue
		}

		s := Snap{Name: fields[0], Revision: fields[2]}
		if fields[3] != "-" {
			s.Channel = fields[3]
		}
		for _, note := range strings.Split(fields[5], ",") {
			if note == "classic" {
				s.Classic = true
			}
		}
		snaps = append(snaps, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snap list: %w", err)
	}
	return snaps, nil
}

// List returns the installed snaps.
func List(ctx context.Context, runner command.Runner) ([]Snap, error) {
	output, err := runner.Output(ctx, "snap", "list")
	if err != nil {
		// snap list exits non-zero with "No snaps are installed yet."
		if strings.Contains(err.Error(), "No snaps are installed") {
			return []Snap{}, nil
		}
		return nil, err
	}
	return ParseList(strings.NewReader(string(output)))
}

// InstallArgs returns the snap arguments that install s.
func InstallArgs(s Snap) []string {
	args := []string{"install", s.Name}
	if s.Channel != "" {
		args = append(args, "--channel="+s.Channel)
	}
	if s.Classic {
		args = append(args, "--classic")
	}
	return args
}

// Install installs one snap.
func Install(ctx context.Context, runner command.Runner, s Snap) error {
	if _, err := runner.CombinedOutput(ctx, "snap", InstallArgs(s)...); err != nil {
		return fmt.Errorf("failed to install snap %s: %w", s.Name, err)
	}
	return nil
}
