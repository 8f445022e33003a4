package tunnel

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/monitoring/metrics"
	"github.com/sshtunnel/internal/shared"
)

// StatusEntry is one line of the status report: a PID file and whether
// its process is still alive.
type StatusEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Manager starts, stops and inspects the supervised autossh processes
// behind each configuration.
type Manager interface {
	Start(name string) error
	StartAll() error
	Stop(name string) error
	StopAll() error
	Restart(name string) error
	Status() ([]StatusEntry, error)
}

type manager struct {
	home   shared.Home
	store  Store
	logger log.Logger
}

func NewManager(home shared.Home, store Store, logger log.Logger) Manager {
	return &manager{
		home:   home,
		store:  store,
		logger: logger,
	}
}

// Start launches the tunnels of one configuration. A live PID file
// makes this a no-op; a stale one is logged and overwritten.
func (m *manager) Start(name string) error {
	err := m.start(name)
	metrics.RecordTunnelStart(name, err)
	return err
}

func (m *manager) start(name string) error {
	pidPath := pidFilePath(m.home.RunDir(), name)

	if pid, err := readPIDFile(pidPath); err == nil {
		if processAlive(pid) {
			m.logger.Infof("tunnel %s already running with PID %d", name, pid)
			return nil
		}
		m.logger.Warnf("PID file found but process %d is not alive, restarting tunnel %s", pid, name)
	}

	config, err := m.store.Load(name)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration %s: %w", name, err)
	}

	argv := buildCommand(config)

	logPath := filepath.Join(m.home.LogDir(), name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open tunnel log %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start tunnel %s: %w", name, err)
	}

	// The child is supervised by autossh itself; we only remember its
	// PID. Release so the CLI process can exit without reaping it.
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		m.logger.Warnf("failed to release tunnel process %d: %v", pid, err)
	}

	if err := writePIDFile(pidPath, pid); err != nil {
		return fmt.Errorf("tunnel %s started (PID %d) but PID file not written: %w", name, pid, err)
	}

	m.logger.Infof("tunnel %s started with PID %d: %s", name, pid, strings.Join(argv, " "))
	return nil
}

func (m *manager) StartAll() error {
	names, err := m.store.List()
	if err != nil {
		return err
	}
	var firstErr error
	for _, name := range names {
		if err := m.Start(name); err != nil {
			m.logger.Errorf("failed to start tunnel %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Stop terminates every process whose PID file belongs to the named
// configuration. Dead processes and malformed PID files are logged,
// and the files removed either way.
func (m *manager) Stop(name string) error {
	err := m.stop(name)
	metrics.RecordTunnelStop(name, err)
	return err
}

func (m *manager) stop(name string) error {
	if !m.store.Exists(name) {
		return fmt.Errorf("configuration %s not found", name)
	}

	entries, err := os.ReadDir(m.home.RunDir())
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Infof("no active tunnel found for %s", name)
			return nil
		}
		return fmt.Errorf("failed to read runtime directory: %w", err)
	}

	stopped := false
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), name) || !strings.HasSuffix(entry.Name(), ".pid") {
			continue
		}
		pidPath := filepath.Join(m.home.RunDir(), entry.Name())

		pid, err := readPIDFile(pidPath)
		if err != nil {
			m.logger.Warnf("tunnel %s has an unreadable PID file: %v", entry.Name(), err)
			_ = os.Remove(pidPath)
			continue
		}

		if err := terminate(pid); err != nil {
			m.logger.Errorf("failed to stop %s (PID %d): %v", entry.Name(), pid, err)
			continue
		}
		_ = os.Remove(pidPath)
		m.logger.Infof("tunnel %s stopped (PID %d)", entry.Name(), pid)
		stopped = true
	}

	if !stopped {
		m.logger.Infof("no active tunnel found for %s", name)
	}
	return nil
}

func (m *manager) StopAll() error {
	names, err := m.store.List()
	if err != nil {
		return err
	}
	var firstErr error
	for _, name := range names {
		if err := m.Stop(name); err != nil {
			m.logger.Errorf("failed to stop tunnel %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *manager) Restart(name string) error {
	if err := m.Stop(name); err != nil {
		return err
	}
	return m.Start(name)
}

// Status reports every PID file in the runtime directory with a
// liveness probe.
func (m *manager) Status() ([]StatusEntry, error) {
	entries, err := os.ReadDir(m.home.RunDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []StatusEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read runtime directory: %w", err)
	}

	result := []StatusEntry{}
	active := 0
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".pid") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".pid")

		pid, err := readPIDFile(filepath.Join(m.home.RunDir(), entry.Name()))
		if err != nil || !processAlive(pid) {
			result = append(result, StatusEntry{Name: name, Status: StatusInactive})
			continue
		}
		result = append(result, StatusEntry{Name: name, Status: StatusActive, PID: pid})
		active++
	}
	metrics.TunnelsActive.Set(float64(active))
	return result, nil
}
