package script

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/inventory"
)

func baseDoc() *inventory.Document {
	return &inventory.Document{
		Distro:      apt.Distro{ID: "Ubuntu", Codename: "jammy", Release: "22.04"},
		SavedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ToolVersion: "1.0.0",
	}
}

func count(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func indexOf(lines []string, prefix string) int {
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return i
		}
	}
	return -1
}

func TestSynthesize_EndToEndScenario(t *testing.T) {
	doc := baseDoc()
	doc.Official = []inventory.OfficialPackage{{Name: "vim"}, {Name: "git"}}
	doc.PPA = []inventory.PPAPackage{{Name: "foo", Repo: "ppa:bar/baz"}}
	doc.Local = []string{"custom.deb-pkg"}
	doc.Recount()

	lines := Synthesize(doc, DefaultOptions()).Lines()

	assert.Equal(t, "#!/bin/bash", lines[0])
	assert.Equal(t, 2, count(lines, "apt-get update"), "one refresh per populated bucket with a known origin")
	assert.Equal(t, 1, count(lines, "apt install vim git"))
	assert.Equal(t, 1, count(lines, "apt install foo"))
	assert.Equal(t, 1, count(lines, `add-apt-repository ppa:bar/baz || echo 'Warning: failed to add ppa:bar/baz' >&2`))

	for _, l := range lines {
		if strings.Contains(l, "custom.deb-pkg") {
			assert.True(t, strings.HasPrefix(l, "#"), "local package only mentioned in comments: %q", l)
		}
	}
}

func TestSynthesize_GuardComesFirst(t *testing.T) {
	doc := baseDoc()
	doc.Official = []inventory.OfficialPackage{{Name: "vim", Component: "main"}}

	lines := Synthesize(doc, DefaultOptions()).Lines()
	guard := indexOf(lines, `[ "$(. /etc/os-release && echo "${UBUNTU_CODENAME:-$VERSION_CODENAME}")" = 'jammy' ] ||`)
	require.GreaterOrEqual(t, guard, 0)
	assert.Contains(t, lines[guard], "exit 1")

	for i, l := range lines[:guard] {
		assert.True(t, i == 0 || strings.HasPrefix(l, "#"), "only comments before the guard: %q", l)
	}
}

func TestSynthesize_GuardMatchesDerivatives(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}

	doc := baseDoc()
	lines := Synthesize(doc, DefaultOptions()).Lines()
	guard := indexOf(lines, "[ ")
	require.GreaterOrEqual(t, guard, 0)

	tests := []struct {
		name      string
		osRelease string
		wantPass  bool
	}{
		{"ubuntu", "ID=ubuntu\nVERSION_CODENAME=jammy\nUBUNTU_CODENAME=jammy\n", true},
		{"linux mint on jammy", "ID=linuxmint\nID_LIKE=\"ubuntu debian\"\nVERSION_CODENAME=vera\nUBUNTU_CODENAME=jammy\n", true},
		{"other release", "ID=ubuntu\nVERSION_CODENAME=noble\nUBUNTU_CODENAME=noble\n", false},
		{"debian", "ID=debian\nVERSION_CODENAME=bookworm\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "os-release")
			require.NoError(t, os.WriteFile(path, []byte(tt.osRelease), 0o644))

			line := strings.ReplaceAll(lines[guard], "/etc/os-release", path)
			out, err := exec.Command(bash, "-c", line).CombinedOutput()
			if tt.wantPass {
				assert.NoError(t, err, string(out))
			} else {
				assert.Error(t, err)
				assert.Contains(t, string(out), "Script will stop")
			}
		})
	}
}

func TestSynthesize_OfficialSection(t *testing.T) {
	doc := baseDoc()
	doc.Official = []inventory.OfficialPackage{
		{Name: "vim", Component: "main"},
		{Name: "vlc", Component: "universe"},
		{Name: "git", Component: "main"},
		{Name: "vim", Component: "main"},
	}

	lines := Synthesize(doc, DefaultOptions()).Lines()

	arch := indexOf(lines, "dpkg --add-architecture i386")
	main := indexOf(lines, "add-apt-repository main ")
	universe := indexOf(lines, "add-apt-repository universe ")
	update := indexOf(lines, "apt-get update")
	install := indexOf(lines, "apt install ")

	require.True(t, arch >= 0 && main >= 0 && universe >= 0 && update >= 0 && install >= 0, strings.Join(lines, "\n"))
	assert.True(t, arch < main && main < universe && universe < update && update < install)
	assert.Equal(t, "apt install vim vlc git", lines[install])
	assert.Equal(t, 1, count(lines, "dpkg --add-architecture i386"))
}

func TestSynthesize_ThirdPartyOrdering(t *testing.T) {
	doc := baseDoc()
	doc.ThirdParty = []inventory.ThirdPartyPackage{
		{Name: "google-chrome-stable", Repo: "deb [arch=amd64] https://dl.google.com/linux/chrome/deb/ stable main", Keys: []string{"7721F63BD38B4796"}},
		{Name: "google-chrome-beta", Repo: "deb [arch=amd64] https://dl.google.com/linux/chrome/deb/ stable main", Keys: []string{"7721F63BD38B4796"}},
		{Name: "code", Repo: "deb [arch=amd64] https://packages.microsoft.com/repos/code stable main", Keys: []string{"EB3E94ADBE1229CF"}},
	}
	doc.ThirdPartyKeys = []inventory.PackageKey{
		{Name: "google-chrome-stable", Key: apt.TrustKey{ID: "7721F63BD38B4796", Name: "Google Inc."}},
		{Name: "google-chrome-beta", Key: apt.TrustKey{ID: "7721F63BD38B4796", Name: "Google Inc."}},
		{Name: "code", Key: apt.TrustKey{ID: "EB3E94ADBE1229CF", Name: "Microsoft"}},
	}

	lines := Synthesize(doc, DefaultOptions()).Lines()

	var keys, repos []int
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "apt-key adv --keyserver keyserver.ubuntu.com --recv "):
			keys = append(keys, i)
		case strings.HasPrefix(l, "add-apt-repository '"):
			repos = append(repos, i)
		}
	}
	require.Len(t, keys, 2, "one import per key id")
	require.Len(t, repos, 2, "one add per unique repository")

	update := indexOf(lines, "apt-get update")
	install := indexOf(lines, "apt install ")
	assert.Less(t, keys[len(keys)-1], repos[0], "keys are imported before repositories are added")
	assert.Less(t, repos[len(repos)-1], update)
	assert.Less(t, update, install)
	assert.Equal(t, "apt install google-chrome-stable google-chrome-beta code", lines[install])
	assert.Contains(t, lines[repos[0]], "'deb [arch=amd64] https://dl.google.com/linux/chrome/deb/ stable main'")
}

func TestSynthesize_UnresolvedEntries(t *testing.T) {
	doc := baseDoc()
	doc.PPA = []inventory.PPAPackage{{Name: "ghost", Unresolved: true}}
	doc.ThirdParty = []inventory.ThirdPartyPackage{
		{Name: "vendor-tool", Unresolved: true},
		{Name: "code", Repo: "deb https://packages.microsoft.com/repos/code stable main"},
	}

	lines := Synthesize(doc, DefaultOptions()).Lines()

	assert.Equal(t, 1, count(lines, "apt-get update"), "the PPA section has nothing to install")
	assert.Equal(t, 1, count(lines, "apt install code"))
	assert.Contains(t, lines, "# ghost: PPA unknown, install it manually")
	assert.Contains(t, lines, "# vendor-tool: repository unknown, install it manually")
	assert.Equal(t, -1, indexOf(lines, "apt-key"), "no keys were matched")
}

func TestSynthesize_EmptyDocument(t *testing.T) {
	lines := Synthesize(baseDoc(), DefaultOptions()).Lines()

	assert.Equal(t, "#!/bin/bash", lines[0])
	assert.Equal(t, "# Nothing to install.", lines[len(lines)-1])
	assert.Equal(t, -1, indexOf(lines, "apt"))
}

func TestSynthesize_AssumeYes(t *testing.T) {
	doc := baseDoc()
	doc.PPA = []inventory.PPAPackage{{Name: "foo", Repo: "ppa:bar/baz"}}

	opts := DefaultOptions()
	opts.AssumeYes = true
	opts.SecondaryArch = ""
	lines := Synthesize(doc, opts).Lines()

	assert.GreaterOrEqual(t, indexOf(lines, "add-apt-repository -y ppa:bar/baz"), 0)
	assert.Equal(t, 1, count(lines, "apt install -y foo"))
}

func TestSynthesize_InstallSetRoundTrip(t *testing.T) {
	doc := baseDoc()
	doc.Official = []inventory.OfficialPackage{{Name: "vim", Component: "main"}, {Name: "git", Component: "main", Unresolved: true}}
	doc.PPA = []inventory.PPAPackage{{Name: "obs-studio", Repo: "ppa:obsproject/obs-studio"}}
	doc.ThirdParty = []inventory.ThirdPartyPackage{{Name: "code", Repo: "deb https://packages.microsoft.com/repos/code stable main"}}
	doc.Local = []string{"custom"}

	var installed []string
	for _, l := range Synthesize(doc, DefaultOptions()).Lines() {
		if strings.HasPrefix(l, "apt install ") {
			installed = append(installed, strings.Fields(strings.TrimPrefix(l, "apt install "))...)
		}
	}
	sort.Strings(installed)
	assert.Equal(t, []string{"code", "git", "obs-studio", "vim"}, installed)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestBufferWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apt.sh")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	b := &Buffer{}
	b.Add("#!/bin/bash")
	b.Comment("hello")
	require.NoError(t, b.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n# hello\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}
