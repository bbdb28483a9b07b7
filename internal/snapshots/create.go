package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/flatpak"
	"github.com/blackwell-systems/srsl/internal/inventory"
	"github.com/blackwell-systems/srsl/internal/provenance"
	"github.com/blackwell-systems/srsl/internal/snap"
	"github.com/blackwell-systems/srsl/internal/umake"
)

// SaveAPT inventories the manually installed packages of the host and
// stores the document under inventory.KindDebs. Missing keys or sources
// degrade the document; failing to identify the host or read the package
// database aborts the save.
func (m *Manager) SaveAPT(ctx context.Context) (*inventory.Document, error) {
	distro, err := m.DetectDistro(ctx)
	if err != nil {
		return nil, err
	}

	cache := apt.NewCache(m.runner, m.opts.Apt)
	installed, err := cache.ListInstalled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}

	sources, err := apt.ReadSources(m.opts.SourcesDir)
	if err != nil {
		m.logger.Warn("continuing without repository sources", "error", err)
	}
	cache.TrustSources(sources)

	manual := provenance.SelectManual(installed)
	if err := cache.FillOrigins(ctx, manual); err != nil {
		return nil, fmt.Errorf("failed to read package origins: %w", err)
	}
	classes := provenance.Classify(manual, distro.OfficialOrigin())
	m.logger.Debug("classified packages",
		"installed", len(installed),
		"manual", classes.Total(),
		"official", len(classes.Official),
		"ppa", len(classes.PPA),
		"thirdparty", len(classes.ThirdParty),
		"local", len(classes.Local))

	keyrings := append(append([]string(nil), m.opts.KeyringPaths...), apt.SignedByKeyrings(sources)...)
	keys, err := apt.ListKeys(ctx, m.runner, keyrings)
	if err != nil {
		m.logger.Warn("continuing without trusted keys", "error", err)
	}

	resolutions := make(map[string]provenance.Resolution)
	for _, group := range [][]*apt.Package{classes.Official, classes.PPA, classes.ThirdParty} {
		for _, res := range provenance.ResolveAll(ctx, cache, group, sources) {
			resolutions[res.Package] = res
		}
	}

	builder := inventory.NewBuilder(m.opts.Version, m.logger)
	builder.Now = m.Now
	doc := builder.Build(inventory.Input{
		Distro:         distro,
		Classification: classes,
		Resolutions:    resolutions,
		Keys:           keys,
	})

	if err := m.put(inventory.KindDebs, doc, doc.SavedAt); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveSnaps stores the installed snaps under inventory.KindSnaps.
func (m *Manager) SaveSnaps(ctx context.Context) (*snap.Document, error) {
	snaps, err := snap.List(ctx, m.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to list snaps: %w", err)
	}
	doc := &snap.Document{SavedAt: m.Now().UTC(), Snaps: snaps}
	if err := m.put(inventory.KindSnaps, doc, doc.SavedAt); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveFlatpaks stores the system remotes and refs under
// inventory.KindFlatpaks.
func (m *Manager) SaveFlatpaks(ctx context.Context) (*flatpak.Document, error) {
	doc, err := flatpak.Snapshot(ctx, m.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to list flatpaks: %w", err)
	}
	doc.SavedAt = m.Now().UTC()
	if err := m.put(inventory.KindFlatpaks, doc, doc.SavedAt); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveUmake stores the Ubuntu Make applications under inventory.KindUmake.
func (m *Manager) SaveUmake(ctx context.Context) (*umake.Document, error) {
	apps, err := umake.List(ctx, m.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to list umake applications: %w", err)
	}
	doc := &umake.Document{SavedAt: m.Now().UTC(), Apps: apps}
	if err := m.put(inventory.KindUmake, doc, doc.SavedAt); err != nil {
		return nil, err
	}
	return doc, nil
}

// put validates and stores v. The previous document of kind survives any
// failure.
func (m *Manager) put(kind string, v any, savedAt time.Time) error {
	data, err := inventory.Encode(kind, v)
	if err != nil {
		return err
	}
	if err := m.store.Save(kind, data, savedAt); err != nil {
		return fmt.Errorf("failed to store %s: %w", kind, err)
	}
	m.logger.Debug("stored document", "kind", kind, "bytes", len(data))
	return nil
}
