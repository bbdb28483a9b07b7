package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/srsl/internal/apt"
	"github.com/blackwell-systems/srsl/internal/command/commandtest"
	"github.com/blackwell-systems/srsl/internal/hostenv"
	"github.com/blackwell-systems/srsl/internal/snapshots"
)

func TestSave_All(t *testing.T) {
	setupTest(t, hostenv.APT, hostenv.Snap, hostenv.Umake)

	out, err := execute(t, "save")
	require.NoError(t, err)

	assertOutput(t, out,
		"✓ snap: 2 snaps saved",
		"⚠ /usr/bin/flatpak not found, skipping (install the 'flatpak' package)",
		"✓ umake: 1 applications saved",
		"✓ apt: 1 packages saved (1 official, 0 PPA, 0 third-party, 0 local)")

	out, err = execute(t, "list")
	require.NoError(t, err)
	assertOutput(t, out, "debs", "snaps", "umake")
	assert.NotContains(t, out, "flatpaks")
}

func TestSave_SingleSource(t *testing.T) {
	h := setupTest(t, hostenv.APT, hostenv.Snap, hostenv.Umake)

	out, err := execute(t, "save", "snap")
	require.NoError(t, err)
	assertOutput(t, out, "snap: 2 snaps saved")
	assert.Equal(t, []string{"snap list"}, h.fake.Calls())
}

func TestSave_RequiresAddAptRepository(t *testing.T) {
	h := setupTest(t, hostenv.Snap)

	_, err := execute(t, "save", "snap")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hostenv.ErrEnvironmentUnsupported))
	assert.Empty(t, h.fake.Calls(), "nothing may run before the environment check")
}

func TestSave_UnknownSourcePrintsUsage(t *testing.T) {
	h := setupTest(t, hostenv.APT)

	out, err := execute(t, "save", "rpm")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUnknownSource))
	assertOutput(t, out, "Usage:")
	assert.Empty(t, h.fake.Calls())
}

func TestSave_FailureIsReportedAndOthersContinue(t *testing.T) {
	h := setupTest(t, hostenv.APT, hostenv.Snap)
	h.fake.Set("snap list", commandtest.Response{Err: errors.New("snapd not running")})

	out, err := execute(t, "save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save snap")
	assertOutput(t, out, "✗ snap:", "✓ apt: 1 packages saved")
}

func TestLoad_Snaps(t *testing.T) {
	h := setupTest(t, hostenv.APT, hostenv.Snap)
	_, err := execute(t, "save", "snap")
	require.NoError(t, err)

	h.fake.Set("snap install code --channel=latest/stable --classic", commandtest.Response{})
	h.fake.Set("snap install firefox --channel=latest/stable", commandtest.Response{Err: errors.New("exit status 1")})

	out, err := execute(t, "load", "snap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 items failed")
	assertOutput(t, out, "[1/2] ✓ code", "[2/2] ✗ firefox", "⚠ snap: 1 installed, 1 failed")
}

func TestLoad_APTWritesScript(t *testing.T) {
	h := setupTest(t, hostenv.APT)
	_, err := execute(t, "save", "apt")
	require.NoError(t, err)

	scriptPath := filepath.Join(h.dir, "restore.sh")
	out, err := execute(t, "load", "apt", "--script", scriptPath)
	require.NoError(t, err)
	assertOutput(t, out, "✓ apt: wrote "+scriptPath+" for 1 packages", "sudo "+scriptPath)

	info, err := os.Stat(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vim")
}

func TestLoad_APTDefaultScriptPathFromConfig(t *testing.T) {
	h := setupTest(t, hostenv.APT)
	_, err := execute(t, "save", "apt")
	require.NoError(t, err)

	_, err = execute(t, "load", "apt")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.dir, "apt.sh"))
}

func TestLoad_APTDistroMismatch(t *testing.T) {
	h := setupTest(t, hostenv.APT)
	_, err := execute(t, "save", "apt")
	require.NoError(t, err)

	detectDistro = func(context.Context) (apt.Distro, error) {
		return apt.Distro{ID: "Ubuntu", Codename: "noble", Release: "24.04"}, nil
	}

	scriptPath := filepath.Join(h.dir, "restore.sh")
	_, err = execute(t, "load", "apt", "--script", scriptPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, snapshots.ErrDistroMismatch))
	assert.NoFileExists(t, scriptPath)
}

func TestLoad_NothingSaved(t *testing.T) {
	setupTest(t, hostenv.APT, hostenv.Umake)

	_, err := execute(t, "load", "umake")
	require.Error(t, err)
	assert.True(t, errors.Is(err, snapshots.ErrPersistenceUnavailable))
}
