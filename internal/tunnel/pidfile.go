package tunnel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sshtunnel/internal/log"
)

// PID files live in the runtime directory as <config>.pid and hold a
// single decimal process ID.

func pidFilePath(runDir, name string) string {
	return filepath.Join(runDir, name+".pid")
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed PID file %s: %w", path, err)
	}
	return pid, nil
}

func writePIDFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o640)
}

// processAlive probes liveness with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// SweepRunDir terminates every process recorded under runDir and
// removes the PID files, configs or not. Used by the uninstaller,
// where tunnel configurations may already be gone.
func SweepRunDir(runDir string, logger log.Logger) error {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read runtime directory: %w", err)
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".pid") {
			continue
		}
		path := filepath.Join(runDir, entry.Name())

		pid, err := readPIDFile(path)
		if err != nil {
			logger.Warnf("removing unreadable PID file %s: %v", entry.Name(), err)
			_ = os.Remove(path)
			continue
		}
		if err := terminate(pid); err != nil {
			logger.Warnf("failed to signal PID %d from %s: %v", pid, entry.Name(), err)
		} else {
			logger.Infof("stopped %s (PID %d)", entry.Name(), pid)
		}
		_ = os.Remove(path)
	}
	return nil
}

// terminate sends SIGTERM; a process that is already gone is not an
// error.
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}
