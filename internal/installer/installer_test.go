package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/shared"
)

type testHome struct {
	base string
}

func newTestHome(t *testing.T) *testHome {
	t.Helper()
	return &testHome{base: t.TempDir()}
}

func (h *testHome) ConfigDir() string        { return filepath.Join(h.base, "etc") }
func (h *testHome) ConfDDir() string         { return filepath.Join(h.base, "etc", "conf.d") }
func (h *testHome) LogDir() string           { return filepath.Join(h.base, "log") }
func (h *testHome) RunDir() string           { return filepath.Join(h.base, "run") }
func (h *testHome) ServiceLogFile() string   { return filepath.Join(h.LogDir(), "sshtunnel.log") }
func (h *testHome) SystemConfigFile() string { return filepath.Join(h.ConfigDir(), "system.yaml") }

func TestRequireRoot(t *testing.T) {
	err := RequireRoot()
	if os.Geteuid() == 0 {
		assert.NoError(t, err)
	} else {
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root")
	}
}

func TestCreateDirectories(t *testing.T) {
	home := newTestHome(t)
	installer := NewInstaller(home, log.NewDefaultLogger(), Options{SkipPackages: true})

	installer.createDirectories()

	for _, dir := range []string{home.ConfigDir(), home.ConfDDir(), home.LogDir(), home.RunDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, shared.DirMode, info.Mode().Perm())
	}
}

func TestInstallBinary(t *testing.T) {
	home := newTestHome(t)
	installDir := t.TempDir()

	source := filepath.Join(t.TempDir(), "sshtunnel-manager")
	require.NoError(t, os.WriteFile(source, []byte("#!/bin/sh\n"), 0o600))

	installer := NewInstaller(home, log.NewDefaultLogger(), Options{
		BinarySource: source,
		InstallDir:   installDir,
	})
	require.NoError(t, installer.installBinary())

	target := filepath.Join(installDir, binaryName)
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, binaryMode, info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(installDir, symlinkName))
	require.NoError(t, err)
	assert.Equal(t, target, link)
}

func TestInstallBinary_ReplacesExistingSymlink(t *testing.T) {
	home := newTestHome(t)
	installDir := t.TempDir()

	source := filepath.Join(t.TempDir(), "sshtunnel-manager")
	require.NoError(t, os.WriteFile(source, []byte("v2"), 0o600))
	require.NoError(t, os.Symlink("/nonexistent", filepath.Join(installDir, symlinkName)))

	installer := NewInstaller(home, log.NewDefaultLogger(), Options{
		BinarySource: source,
		InstallDir:   installDir,
	})
	require.NoError(t, installer.installBinary())

	link, err := os.Readlink(filepath.Join(installDir, symlinkName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(installDir, binaryName), link)
}

func TestSeedConfigs(t *testing.T) {
	home := newTestHome(t)
	require.NoError(t, os.MkdirAll(home.ConfDDir(), shared.DirMode))

	source := filepath.Join(t.TempDir(), "office.json")
	require.NoError(t, os.WriteFile(source, []byte(`{"user":"tunnel_user"}`), 0o600))

	installer := NewInstaller(home, log.NewDefaultLogger(), Options{
		ConfigSources: []string{source},
	})
	installer.seedConfigs()

	target := filepath.Join(home.ConfDDir(), "office.json")
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, configMode, info.Mode().Perm())
}

func TestCopyFile_MissingSource(t *testing.T) {
	err := copyFile(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "dst"), 0o600)
	assert.Error(t, err)
}

func TestCopyFile_OverwritesAndChmods(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o600))
	require.NoError(t, os.WriteFile(dst, []byte("old contents"), 0o666))

	require.NoError(t, copyFile(src, dst, 0o640))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}
