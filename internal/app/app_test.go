package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/command/commandtest"
	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/output"
)

var (
	jammy    = apt.Distro{ID: "Ubuntu", Codename: "jammy", Release: "22.04"}
	fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func init() {
	output.SetColor(false)
}

const statusFixture = `Package: vim
Status: install ok installed
Architecture: amd64
Version: 2:8.2.3995-1ubuntu2
`

const globalPolicyFixture = `Package files:
 100 /var/lib/dpkg/status
     release a=now
     origin
 500 http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages
     release v=22.04,o=Ubuntu,a=jammy,n=jammy,l=Ubuntu,c=main,b=amd64
     origin archive.ubuntu.com
Pinned packages:
`

const packagePolicyFixture = `vim:
  Installed: 2:8.2.3995-1ubuntu2
  Candidate: 2:8.2.3995-1ubuntu2
  Version table:
 *** 2:8.2.3995-1ubuntu2 500
        500 http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages
        100 /var/lib/dpkg/status
`

const snapListFixture = `Name      Version   Rev    Tracking         Publisher   Notes
code      1.86.2    155    latest/stable    vscode✓     classic
firefox   123.0-2   3836   latest/stable    mozilla✓    -
`

const umakeFixture = "ide: Generic IDEs\n" +
	"\tvscode: Visual Studio Code [installed]\n" +
	"\tatom: Atom\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testHost is an isolated fake Ubuntu jammy host.
type testHost struct {
	dir  string
	fake *commandtest.Fake
}

// setupTest points srsl at a temporary host where the tools of the given
// sources are installed, and restores the package state afterwards.
func setupTest(t *testing.T, tools ...hostenv.Source) *testHost {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	root := filepath.Join(dir, "root")
	writeFile(t, filepath.Join(root, "var/lib/dpkg/status"), statusFixture)
	writeFile(t, filepath.Join(root, "var/lib/apt/lists/archive.ubuntu.com_ubuntu_dists_jammy_InRelease"), "signed")
	writeFile(t, filepath.Join(root, "etc/apt/sources.list"), "deb http://archive.ubuntu.com/ubuntu jammy main\n")

	writeFile(t, filepath.Join(dir, "config", "srsl", "config.yaml"), `
apt:
  sources_dir: `+filepath.Join(root, "etc/apt")+`
  lists_dir: `+filepath.Join(root, "var/lib/apt/lists")+`
  status: `+filepath.Join(root, "var/lib/dpkg/status")+`
  extended_states: `+filepath.Join(root, "var/lib/apt/extended_states")+`
  keyrings:
    - `+filepath.Join(root, "etc/apt/trusted.gpg.d")+`
script:
  path: `+filepath.Join(dir, "apt.sh")+`
`)

	fake := commandtest.NewFake(map[string]commandtest.Response{
		"apt-cache policy":       {Output: globalPolicyFixture},
		"apt-cache policy vim":   {Output: packagePolicyFixture},
		"snap list":              {Output: snapListFixture},
		"umake --list-available": {Output: umakeFixture},
	})

	installed := make(map[string]bool)
	for _, src := range tools {
		for _, tool := range hostenv.Tools {
			if tool.Source == src {
				installed[tool.Paths[0]] = true
			}
		}
	}

	prevRunner, prevProber, prevDetect, prevNow := runner, prober, detectDistro, now
	t.Cleanup(func() {
		runner, prober, detectDistro, now = prevRunner, prevProber, prevDetect, prevNow
	})

	runner = fake
	prober = &hostenv.Prober{Executable: func(path string) bool { return installed[path] }}
	detectDistro = func(context.Context) (apt.Distro, error) { return jammy, nil }
	now = func() time.Time { return fixedNow }

	return &testHost{dir: dir, fake: fake}
}

// execute runs srsl with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, dbPath, verbose = "", "", false
	loadScript = ""
	listHistory = ""
	showFormat, showRevision = "table", 0
	watchDaemon, watchDaemonChild, watchStop = false, false, false
	watchPIDFile, watchLogFile = "", ""

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := Execute()
	return out.String(), err
}

func assertOutput(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
