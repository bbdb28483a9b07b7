package snapshots

import (
	"context"
	"errors"
	"fmt"

	"github.com/blackwell-systems/srsl/internal/flatpak"
	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/inventory"
	"github.com/blackwell-systems/srsl/internal/script"
	"github.com/blackwell-systems/srsl/internal/snap"
	"github.com/blackwell-systems/srsl/internal/store"
	"github.com/blackwell-systems/srsl/internal/umake"
)

// LoadAPT writes the reconstruction script for the saved APT document to
// scriptPath. The script is only written when the document was saved on the
// same distribution and release as the running host.
func (m *Manager) LoadAPT(ctx context.Context, scriptPath string) (*inventory.Document, error) {
	var doc inventory.Document
	if err := m.get(inventory.KindDebs, &doc); err != nil {
		return nil, err
	}

	current, err := m.DetectDistro(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Distro.ID != current.ID || doc.Distro.Codename != current.Codename {
		return nil, &DistroMismatchError{Saved: doc.Distro, Current: current}
	}

	buf := script.Synthesize(&doc, m.opts.Script)
	if err := buf.WriteFile(scriptPath); err != nil {
		return nil, err
	}
	m.logger.Debug("wrote reconstruction script", "path", scriptPath, "lines", len(buf.Lines()))
	return &doc, nil
}

// LoadSnaps installs every saved snap. Failures are collected in the report
// and do not stop the remaining installs.
func (m *Manager) LoadSnaps(ctx context.Context) (*Report, error) {
	var doc snap.Document
	if err := m.get(inventory.KindSnaps, &doc); err != nil {
		return nil, err
	}

	report := &Report{Source: hostenv.Snap}
	for _, s := range doc.Snaps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := snap.Install(ctx, m.runner, s); err != nil {
			m.logger.Warn("snap install failed", "snap", s.Name, "error", err)
			report.fail(s.Name, err)
			continue
		}
		report.succeed(s.Name)
	}
	return report, nil
}

// LoadFlatpaks adds the saved remotes, then installs the saved refs.
func (m *Manager) LoadFlatpaks(ctx context.Context) (*Report, error) {
	var doc flatpak.Document
	if err := m.get(inventory.KindFlatpaks, &doc); err != nil {
		return nil, err
	}

	report := &Report{Source: hostenv.Flatpak}
	for _, remote := range doc.Remotes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := flatpak.AddRemote(ctx, m.runner, remote); err != nil {
			m.logger.Warn("flatpak remote not added", "remote", remote.Name, "error", err)
			report.fail("remote "+remote.Name, err)
			continue
		}
		// A stale appstream only slows ref resolution down; installs still run.
		if err := flatpak.RefreshRemote(ctx, m.runner, remote.Name); err != nil {
			m.logger.Warn("flatpak remote not refreshed", "remote", remote.Name, "error", err)
		}
	}
	for _, ref := range doc.Refs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := flatpak.Install(ctx, m.runner, ref); err != nil {
			m.logger.Warn("flatpak install failed", "ref", ref.String(), "error", err)
			report.fail(ref.Name, err)
			continue
		}
		report.succeed(ref.Name)
	}
	return report, nil
}

// LoadUmake installs every saved Ubuntu Make application.
func (m *Manager) LoadUmake(ctx context.Context) (*Report, error) {
	var doc umake.Document
	if err := m.get(inventory.KindUmake, &doc); err != nil {
		return nil, err
	}

	report := &Report{Source: hostenv.Umake}
	for _, app := range doc.Apps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := app.Category + "/" + app.Application
		if err := umake.Install(ctx, m.runner, app); err != nil {
			m.logger.Warn("umake install failed", "app", item, "error", err)
			report.fail(item, err)
			continue
		}
		report.succeed(item)
	}
	return report, nil
}

// Fetch returns the stored JSON of kind. A positive revision selects a past
// revision instead of the current document.
func (m *Manager) Fetch(kind string, revision int64) ([]byte, *store.Info, error) {
	var (
		data []byte
		info *store.Info
		err  error
	)
	if revision > 0 {
		data, info, err = m.store.LoadRevision(revision)
	} else {
		data, info, err = m.store.Load(kind)
	}
	if err != nil {
		return nil, nil, unavailable(kind, err)
	}
	if info.Key != kind {
		return nil, nil, fmt.Errorf("%w: revision %d belongs to %s, not %s", ErrPersistenceUnavailable, revision, info.Key, kind)
	}
	if err := inventory.Validate(kind, data); err != nil {
		return nil, nil, unavailable(kind, err)
	}
	return data, info, nil
}

// get loads and decodes the current document of kind.
func (m *Manager) get(kind string, v any) error {
	data, _, err := m.store.Load(kind)
	if err != nil {
		return unavailable(kind, err)
	}
	if err := inventory.Decode(kind, data, v); err != nil {
		return unavailable(kind, err)
	}
	return nil
}

func unavailable(kind string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: nothing saved for %s yet: %w", ErrPersistenceUnavailable, kind, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistenceUnavailable, kind, err)
}
