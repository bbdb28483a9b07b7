// Package snapshots saves host software inventories into the store and
// restores them.
package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/command"
	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/script"
	"github.com/blackwell-systems/srsl/internal/store"
)

var (
	// ErrDistroMismatch is matched by *DistroMismatchError.
	ErrDistroMismatch = errors.New("distribution mismatch")
	// ErrPersistenceUnavailable is returned when a saved document is missing
	// or cannot be read back.
	ErrPersistenceUnavailable = errors.New("saved inventory unavailable")
)

// DistroMismatchError is returned when a document is loaded on a host other
// than the one it was saved for.
type DistroMismatchError struct {
	Saved   apt.Distro
	Current apt.Distro
}

func (e *DistroMismatchError) Error() string {
	return fmt.Sprintf("inventory was saved on %s but this host runs %s", e.Saved, e.Current)
}

func (e *DistroMismatchError) Unwrap() error {
	return ErrDistroMismatch
}

// Options locates the host state a Manager reads.
type Options struct {
	Apt apt.Paths
	// SourcesDir holds sources.list and sources.list.d, normally /etc/apt.
	SourcesDir   string
	KeyringPaths []string
	// Version is recorded in saved APT documents.
	Version string
	Script  script.Options
}

// DefaultOptions returns the standard Debian locations.
func DefaultOptions() Options {
	return Options{
		Apt:          apt.DefaultPaths(),
		SourcesDir:   "/etc/apt",
		KeyringPaths: apt.DefaultKeyringPaths,
		Version:      "dev",
		Script:       script.DefaultOptions(),
	}
}

// Failure is one item a load could not install.
type Failure struct {
	Item string
	Err  error
}

// Report summarises a load that installs items one by one.
type Report struct {
	Source    hostenv.Source
	Installed []string
	Failures  []Failure
}

func (r *Report) succeed(item string) {
	r.Installed = append(r.Installed, item)
}

func (r *Report) fail(item string, err error) {
	r.Failures = append(r.Failures, Failure{Item: item, Err: err})
}

// Err joins the failures, or returns nil when everything was installed.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return fmt.Errorf("%s: %d of %d items failed: %w",
		r.Source, len(r.Failures), len(r.Failures)+len(r.Installed), errors.Join(errs...))
}

// Manager manages saving and loading of inventories.
type Manager struct {
	store  *store.Store
	runner command.Runner
	opts   Options
	logger *slog.Logger

	// DetectDistro identifies the running host.
	DetectDistro func(context.Context) (apt.Distro, error)
	Now          func() time.Time
}

// New creates a new snapshot Manager.
func New(st *store.Store, runner command.Runner, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:        st,
		runner:       runner,
		opts:         opts,
		logger:       logger,
		DetectDistro: hostenv.DetectDistro,
		Now:          time.Now,
	}
}
