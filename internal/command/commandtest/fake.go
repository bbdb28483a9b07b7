// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/blackwell-systems/srsl/internal/command"
)

// Response is the canned result for one command line.
type Response struct {
	Output string
	Err    error
}

// Fake answers commands from a table keyed by the full command line
// (name and arguments joined by single spaces). Unknown commands fail.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// NewFake creates a Fake with the given responses.
func NewFake(responses map[string]Response) *Fake {
	if responses == nil {
		responses = make(map[string]Response)
	}
	return &Fake{responses: responses}
}

// Set registers or replaces the response for a command line.
func (f *Fake) Set(line string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = resp
}

// Calls returns every command line run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Output implements command.Runner.
func (f *Fake) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	return f.run(name, args...)
}

// CombinedOutput implements command.Runner.
func (f *Fake) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	return f.run(name, args...)
}

func (f *Fake) run(name string, args ...string) ([]byte, error) {
	line := command.Line(name, args...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)

	resp, ok := f.responses[line]
	if !ok {
		return nil, fmt.Errorf("%s failed: unexpected command", line)
	}
	return []byte(resp.Output), resp.Err
}
