package apt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const globalPolicyFixture = `Package files:
 100 /var/lib/dpkg/status
     release a=now
     origin
 500 http://ppa.launchpad.net/obsproject/obs-studio/ubuntu jammy/main amd64 Packages
     release v=22.04,o=LP-PPA-obsproject-obs-studio,a=jammy,n=jammy,l=OBS Studio, stable,c=main,b=amd64
     origin ppa.launchpad.net
 500 http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages
     release v=22.04,o=Ubuntu,a=jammy,n=jammy,l=Ubuntu,c=main,b=amd64
     origin archive.ubuntu.com
Pinned packages:
     firefox -> 1:1snap1-0ubuntu2 with priority 1001
`

func TestParseFileOrigins(t *testing.T) {
	origins, err := ParseFileOrigins(strings.NewReader(globalPolicyFixture))
	require.NoError(t, err)
	require.Len(t, origins, 3)

	assert.Equal(t, "now", origins[StatusFile].Archive)

	ppa := origins["http://ppa.launchpad.net/obsproject/obs-studio/ubuntu jammy/main amd64 Packages"]
	assert.Equal(t, "LP-PPA-obsproject-obs-studio", ppa.Origin)
	assert.Equal(t, "OBS Studio, stable", ppa.Label)
	assert.Equal(t, "jammy", ppa.Archive)
	assert.Equal(t, "main", ppa.Component)
	assert.Equal(t, "ppa.launchpad.net", ppa.Site)

	ubuntu := origins["http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages"]
	assert.Equal(t, "Ubuntu", ubuntu.Origin)
	assert.Equal(t, "jammy", ubuntu.Codename)
	assert.False(t, ubuntu.Trusted, "trust is not part of policy output")
}

const packagePolicyFixture = `vim:
  Installed: 2:8.2.3995-1ubuntu2
  Candidate: 2:8.2.3995-1ubuntu2.1
  Version table:
     2:8.2.3995-1ubuntu2.1 500
        500 http://archive.ubuntu.com/ubuntu jammy-updates/main amd64 Packages
 *** 2:8.2.3995-1ubuntu2 500
        500 http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages
        100 /var/lib/dpkg/status
local-tool:
  Installed: 20
  Candidate: 20
  Version table:
 *** 20 100
        100 /var/lib/dpkg/status
ghost:
  Installed: (none)
  Candidate: (none)
  Version table:
`

func TestParsePolicies(t *testing.T) {
	policies, err := ParsePolicies(strings.NewReader(packagePolicyFixture))
	require.NoError(t, err)
	require.Len(t, policies, 3)

	vim := policies["vim"]
	require.NotNil(t, vim)
	require.Len(t, vim.Versions, 2)
	assert.False(t, vim.Versions[0].Installed)
	assert.True(t, vim.Versions[1].Installed)

	assert.Equal(t, []PackageFile{
		{Priority: 500, Path: "http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages"},
		{Priority: 100, Path: StatusFile},
	}, vim.InstalledFiles())

	candidate := vim.CandidateFiles()
	require.Len(t, candidate, 1)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu", candidate[0].URI())
	assert.Equal(t, "jammy-updates", candidate[0].Suite())
	assert.True(t, candidate[0].IsPackageIndex())

	local := policies["local-tool"]
	require.Len(t, local.Versions, 1, "a numeric version is still a version row")
	assert.Equal(t, "20", local.Versions[0].Version)
	assert.Equal(t, []PackageFile{{Priority: 100, Path: StatusFile}}, local.InstalledFiles())

	assert.Empty(t, policies["ghost"].InstalledFiles())
	assert.Empty(t, policies["ghost"].CandidateFiles())
}

func TestPackageFile(t *testing.T) {
	status := PackageFile{Priority: 100, Path: StatusFile}
	assert.False(t, status.IsPackageIndex())
	assert.Empty(t, status.URI())
	assert.Empty(t, status.Suite())

	suites := map[string]string{
		"http://archive.ubuntu.com/ubuntu jammy-updates/main amd64 Packages":                 "jammy-updates",
		"http://security.debian.org stable/updates/main amd64 Packages":                      "stable/updates",
		"http://download.opensuse.org/repositories/home:/strycore/xUbuntu_22.04 ./ Packages": "./",
		"http://repo.example.com/flat / Packages":                                            "/",
	}
	for path, want := range suites {
		assert.Equal(t, want, PackageFile{Priority: 500, Path: path}.Suite(), path)
	}
}
