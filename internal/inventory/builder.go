package inventory

import (
	"log/slog"
	"slices"
	"time"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/provenance"
)

// Input is everything gathered from the host for one save.
type Input struct {
	Distro         apt.Distro
	Classification provenance.Classification
	// Resolutions are keyed by package name. Packages without an entry are
	// treated as unresolved.
	Resolutions map[string]provenance.Resolution
	Keys        []apt.TrustKey
}

// Builder assembles Documents.
type Builder struct {
	Version string
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewBuilder creates a Builder stamping documents with version.
func NewBuilder(version string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Version: version, Logger: logger, Now: time.Now}
}

// Build creates the document for in. Unresolved packages stay listed with
// Unresolved set; third-party keys are only matched for resolved ones.
func (b *Builder) Build(in Input) *Document {
	doc := &Document{
		Distro:         in.Distro,
		SavedAt:        b.Now().UTC(),
		ToolVersion:    b.Version,
		Official:       []OfficialPackage{},
		PPA:            []PPAPackage{},
		ThirdParty:     []ThirdPartyPackage{},
		ThirdPartyKeys: []PackageKey{},
		Local:          []string{},
	}

	for _, pkg := range in.Classification.Official {
		entry := OfficialPackage{Name: pkg.Name}
		if len(pkg.Origins) > 0 {
			entry.Component = pkg.Origins[0].Component
			entry.Archive = pkg.Origins[0].Archive
		}
		if res, ok := in.Resolutions[pkg.Name]; !ok || !res.Resolved() {
			entry.Unresolved = true
			b.warnUnresolved(pkg.Name, provenance.Official, res)
		}
		doc.Official = append(doc.Official, entry)
	}

	for _, pkg := range in.Classification.PPA {
		entry := PPAPackage{Name: pkg.Name}
		res, ok := in.Resolutions[pkg.Name]
		if ok && res.Resolved() {
			entry.DebLine = res.RepoLine
			entry.Repo = provenance.PPAShortcut(res.RepoLine)
		}
		if entry.Repo == "" {
			entry.Unresolved = true
			b.warnUnresolved(pkg.Name, provenance.ThirdPartyPPA, res)
		}
		doc.PPA = append(doc.PPA, entry)
	}

	for _, pkg := range in.Classification.ThirdParty {
		entry := ThirdPartyPackage{Name: pkg.Name}
		res, ok := in.Resolutions[pkg.Name]
		if !ok || !res.Resolved() {
			entry.Unresolved = true
			b.warnUnresolved(pkg.Name, provenance.ThirdPartyRepo, res)
			doc.ThirdParty = append(doc.ThirdParty, entry)
			continue
		}

		entry.Repo = res.RepoLine
		candidate := provenance.Candidate{Name: pkg.Name, RepoLine: res.RepoLine}
		if len(pkg.Origins) > 0 {
			candidate.Origin = pkg.Origins[0].Origin
			candidate.Label = pkg.Origins[0].Label
		}

		for _, m := range provenance.MatchKeys(candidate, in.Keys) {
			rules := make([]string, 0, len(m.Rules))
			for _, r := range m.Rules {
				rules = append(rules, string(r))
			}
			b.Logger.Debug("matched key", "package", pkg.Name, "key", m.Key.ID, "name", m.Key.Name, "rules", rules)
			doc.ThirdPartyKeys = append(doc.ThirdPartyKeys, PackageKey{Name: pkg.Name, Key: m.Key, Rules: rules})
			if !slices.Contains(entry.Keys, m.Key.ID) {
				entry.Keys = append(entry.Keys, m.Key.ID)
			}
		}
		if len(entry.Keys) == 0 {
			b.Logger.Warn("no signing key matched", "package", pkg.Name, "repo", res.RepoLine)
		}
		doc.ThirdParty = append(doc.ThirdParty, entry)
	}

	for _, pkg := range in.Classification.Local {
		doc.Local = append(doc.Local, pkg.Name)
	}

	doc.Recount()
	return doc
}

func (b *Builder) warnUnresolved(name string, bucket provenance.Bucket, res provenance.Resolution) {
	attrs := []any{"package", name, "bucket", bucket.String()}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	b.Logger.Warn("repository origin unresolved", attrs...)
}
