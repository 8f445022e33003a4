package tunnel

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sshtunnel/internal/log"
)

func newTestManager(t *testing.T) (Manager, Store, *testHome) {
	t.Helper()
	home := newTestHome(t)
	store := NewStore(home)
	return NewManager(home, store, log.NewDefaultLogger()), store, home
}

func TestManager_StartAlreadyRunning(t *testing.T) {
	manager, store, home := newTestManager(t)
	require.NoError(t, store.Save("office", validConfig()))

	// A live PID makes start a no-op.
	require.NoError(t, writePIDFile(pidFilePath(home.RunDir(), "office"), os.Getpid()))

	assert.NoError(t, manager.Start("office"))
}

func TestManager_StartMissingConfig(t *testing.T) {
	manager, _, _ := newTestManager(t)

	err := manager.Start("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestManager_StartInvalidConfig(t *testing.T) {
	manager, store, _ := newTestManager(t)
	config := validConfig()
	config.SSHKey = ""
	require.NoError(t, store.Save("office", config))

	err := manager.Start("office")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh_key")
}

func TestManager_StopTerminatesPrefixedPIDFiles(t *testing.T) {
	manager, store, home := newTestManager(t)
	require.NoError(t, store.Save("office", validConfig()))

	first := exec.Command("sleep", "60")
	require.NoError(t, first.Start())
	second := exec.Command("sleep", "60")
	require.NoError(t, second.Start())

	require.NoError(t, writePIDFile(pidFilePath(home.RunDir(), "office"), first.Process.Pid))
	require.NoError(t, writePIDFile(pidFilePath(home.RunDir(), "office_backup"), second.Process.Pid))

	require.NoError(t, manager.Stop("office"))
	_ = first.Wait()
	_ = second.Wait()

	waitForExit(t, first.Process.Pid)
	waitForExit(t, second.Process.Pid)
	assert.NoFileExists(t, pidFilePath(home.RunDir(), "office"))
	assert.NoFileExists(t, pidFilePath(home.RunDir(), "office_backup"))
}

func TestManager_StopUnknownConfig(t *testing.T) {
	manager, _, _ := newTestManager(t)

	err := manager.Stop("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestManager_StopNoActiveTunnel(t *testing.T) {
	manager, store, _ := newTestManager(t)
	require.NoError(t, store.Save("office", validConfig()))

	assert.NoError(t, manager.Stop("office"))
}

func TestManager_StopRemovesMalformedPIDFile(t *testing.T) {
	manager, store, home := newTestManager(t)
	require.NoError(t, store.Save("office", validConfig()))

	path := pidFilePath(home.RunDir(), "office")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o640))

	require.NoError(t, manager.Stop("office"))
	assert.NoFileExists(t, path)
}

func TestManager_Status(t *testing.T) {
	manager, _, home := newTestManager(t)

	require.NoError(t, writePIDFile(pidFilePath(home.RunDir(), "alive"), os.Getpid()))
	require.NoError(t, writePIDFile(pidFilePath(home.RunDir(), "dead"), 999999999))
	require.NoError(t, os.WriteFile(filepath.Join(home.RunDir(), "notes.txt"), []byte("x"), 0o640))

	entries, err := manager.Status()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]StatusEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, StatusActive, byName["alive"].Status)
	assert.Equal(t, os.Getpid(), byName["alive"].PID)
	assert.Equal(t, StatusInactive, byName["dead"].Status)
	assert.Zero(t, byName["dead"].PID)
}

func TestManager_StatusEmptyRunDir(t *testing.T) {
	manager, _, home := newTestManager(t)
	require.NoError(t, os.RemoveAll(home.RunDir()))

	entries, err := manager.Status()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
