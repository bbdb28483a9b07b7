// Package inventory builds the saved APT document: every manually
// installed package with enough provenance to install it again.
package inventory

import (
	"time"

	"github.com/blackwell-systems/srsl/internal/apt"
)

// Document is the saved APT inventory of one host.
type Document struct {
	Distro      apt.Distro `json:"distro"`
	SavedAt     time.Time  `json:"saved_at"`
	ToolVersion string     `json:"tool_version"`
	Stats       Stats      `json:"package_stats"`

	Official       []OfficialPackage   `json:"official_packages"`
	PPA            []PPAPackage        `json:"launchpad_ppa_packages"`
	ThirdParty     []ThirdPartyPackage `json:"thirdparty_packages"`
	ThirdPartyKeys []PackageKey        `json:"thirdparty_keys"`
	Local          []string            `json:"local_packages"`
}

// Stats counts the packages per bucket. The counts always equal the list
// lengths of the document.
type Stats struct {
	Total      int `json:"total"`
	Official   int `json:"official"`
	PPAs       int `json:"ppas"`
	ThirdParty int `json:"thirdparty"`
	Local      int `json:"local"`
}

// OfficialPackage comes from the distribution archive.
type OfficialPackage struct {
	Name       string `json:"name"`
	Component  string `json:"component"`
	Archive    string `json:"archive"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// PPAPackage comes from a Launchpad PPA.
type PPAPackage struct {
	Name       string `json:"name"`
	Repo       string `json:"repo"`
	DebLine    string `json:"deb_line,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// ThirdPartyPackage comes from a signed non-Launchpad repository.
type ThirdPartyPackage struct {
	Name       string   `json:"name"`
	Repo       string   `json:"repo"`
	Keys       []string `json:"keys,omitempty"`
	Unresolved bool     `json:"unresolved,omitempty"`
}

// PackageKey records a signing key matched to a third-party package.
type PackageKey struct {
	Name  string       `json:"name"`
	Key   apt.TrustKey `json:"key"`
	Rules []string     `json:"rules"`
}

// UniqueKeys returns the matched keys de-duplicated by key id, in
// first-seen order.
func (d *Document) UniqueKeys() []apt.TrustKey {
	seen := make(map[string]bool)
	var keys []apt.TrustKey
	for _, pk := range d.ThirdPartyKeys {
		if seen[pk.Key.ID] {
			continue
		}
		seen[pk.Key.ID] = true
		keys = append(keys, pk.Key)
	}
	return keys
}

// Recount sets Stats from the list lengths.
func (d *Document) Recount() {
	d.Stats = Stats{
		Official:   len(d.Official),
		PPAs:       len(d.PPA),
		ThirdParty: len(d.ThirdParty),
		Local:      len(d.Local),
	}
	d.Stats.Total = d.Stats.Official + d.Stats.PPAs + d.Stats.ThirdParty + d.Stats.Local
}
