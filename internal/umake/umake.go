// Package umake saves and restores applications installed with Ubuntu Make.
package umake

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blackwell-systems/srsl/internal/command"
)

// App is one installed Ubuntu Make application.
type App struct {
	Category    string `json:"category"`
	Application string `json:"application"`
}

// Document is the saved Ubuntu Make inventory.
type Document struct {
	SavedAt time.Time `json:"saved_at"`
	Apps    []App     `json:"apps"`
}

var installedMarkers = []string{"[installed]", "[partially installed]", "[fully installed]"}

// ParseListAvailable parses `umake --list-available` output. Category lines
// start in column zero; application lines are tab indented:
//
//	games: Games Development Environment
//		godot: Godot game engine [installed]
func ParseListAvailable(r io.Reader) ([]App, error) {
	apps := []App{}
	category := ""
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, " ") {
			name, _, _ := strings.Cut(line, ":")
			category = strings.TrimSpace(name)
			continue
		}
		if category == "" || !isInstalled(line) {
			continue
		}

		name, _, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || name == "" {
			continue
		}
		apps = append(apps, App{Category: category, Application: strings.TrimSpace(name)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read umake output: %w", err)
	}
	return apps, nil
}

func isInstalled(line string) bool {
	for _, marker := range installedMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// List returns the installed applications.
func List(ctx context.Context, runner command.Runner) ([]App, error) {
	output, err := runner.Output(ctx, "umake", "--list-available")
	if err != nil {
		return nil, err
	}
	return ParseListAvailable(strings.NewReader(string(output)))
}

// Install installs one application.
func Install(ctx context.Context, runner command.Runner, app App) error {
	if _, err := runner.CombinedOutput(ctx, "umake", app.Category, app.Application); err != nil {
		return fmt.Errorf("failed to install %s from %s: %w", app.Application, app.Category, err)
	}
	return nil
}
