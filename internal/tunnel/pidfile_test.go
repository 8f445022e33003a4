package tunnel

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sshtunnel/internal/log"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "office.pid")

	require.NoError(t, writePIDFile(path, 4242))

	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestReadPIDFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "office.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o640))

	_, err := readPIDFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestReadPIDFile_Missing(t *testing.T) {
	_, err := readPIDFile(filepath.Join(t.TempDir(), "ghost.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-1))
}

func TestTerminate(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, terminate(pid))
	_ = cmd.Wait()

	// A second SIGTERM to the reaped process is not an error.
	assert.NoError(t, terminate(pid))
}

func TestSweepRunDir(t *testing.T) {
	runDir := t.TempDir()

	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	require.NoError(t, writePIDFile(pidFilePath(runDir, "office"), cmd.Process.Pid))
	require.NoError(t, os.WriteFile(pidFilePath(runDir, "broken"), []byte("junk"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "notes.txt"), []byte("keep"), 0o640))

	require.NoError(t, SweepRunDir(runDir, log.NewDefaultLogger()))
	_ = cmd.Wait()

	entries, err := os.ReadDir(runDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes.txt", entries[0].Name())

	waitForExit(t, cmd.Process.Pid)
}

func TestSweepRunDir_MissingDirectory(t *testing.T) {
	assert.NoError(t, SweepRunDir(filepath.Join(t.TempDir(), "missing"), log.NewDefaultLogger()))
}

func waitForExit(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("process %d still alive", pid)
}
