// Package command runs the external package tools srsl depends on
// (apt-cache, apt-key, gpg, snap, flatpak, umake).
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its output.
type Runner interface {
	// Output runs the command and returns stdout. A non-zero exit is an error
	// that carries stderr.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// CombinedOutput runs the command and returns stdout and stderr together.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Exec is the Runner backed by os/exec. Commands always run with LC_ALL=C
// so their output can be parsed regardless of the user's locale.
type Exec struct{}

// Output implements Runner.
func (Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("%s failed: %w (stderr: %s)", Line(name, args...), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return output, fmt.Errorf("%s failed: %w", Line(name, args...), err)
	}
	return output, nil
}

// CombinedOutput implements Runner.
func (Exec) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s failed: %w (output: %s)", Line(name, args...), err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// Line renders a command and its arguments as a single string.
func Line(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
