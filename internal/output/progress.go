package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Progress reports a load that installs items one at a time.
// Example: [ 3/12] ✓ org.mozilla.firefox
type Progress struct {
	total   int
	current int
	label   string
	mu      sync.Mutex
	writer  io.Writer
}

// NewProgress creates a progress reporter for total items.
func NewProgress(total int, label string) *Progress {
	return &Progress{total: total, label: label, writer: os.Stdout}
}

// SetWriter sets the output writer (useful for testing).
func (p *Progress) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Step records one finished item. A nil err marks it installed.
func (p *Progress) Step(item string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	width := len(fmt.Sprint(p.total))
	prefix := fmt.Sprintf("[%*d/%d]", width, p.current, p.total)
	if err != nil {
		fmt.Fprintf(p.writer, "%s %s %s: %v\n", prefix, failMark(), item, err)
		return
	}
	fmt.Fprintf(p.writer, "%s %s %s\n", prefix, okMark(), item)
}

// Finish prints the summary line.
func (p *Progress) Finish(failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if failed == 0 {
		fmt.Fprintf(p.writer, "%s %s: %d installed\n", okMark(), p.label, p.current)
		return
	}
	fmt.Fprintf(p.writer, "%s %s: %d installed, %d failed\n", warnMark(), p.label, p.current-failed, failed)
}

// Spinner displays an animated spinner while a step runs.
// Example: |  Reading apt policy (4s)
type Spinner struct {
	message   string
	running   bool
	chars     []string
	mu        sync.Mutex
	writer    io.Writer
	ticker    *time.Ticker
	done      chan struct{}
	startTime time.Time
}

// NewSpinner creates a new spinner with a message. It does not start
// until Start is called.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  os.Stdout,
		done:    make(chan struct{}),
	}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the spinner animation.
// On a non-TTY writer the message is printed once instead.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.startTime = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.ticker = time.NewTicker(100 * time.Millisecond)
	go func() {
		idx := 0
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				if !s.running {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(s.writer, "\r%s  %s", s.chars[idx], s.formatMessage())
				idx = (idx + 1) % len(s.chars)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// formatMessage adds the elapsed time once a step takes more than a
// second. Must be called with lock held.
func (s *Spinner) formatMessage() string {
	elapsed := time.Since(s.startTime)
	if elapsed < time.Second {
		return s.message
	}
	return fmt.Sprintf("%s (%ds)", s.message, int(elapsed.Seconds()))
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.formatMessage())+4))
	}
}

// UpdateMessage updates the spinner message while it's running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// StopWithMessage stops the spinner and displays a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
