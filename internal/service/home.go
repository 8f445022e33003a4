package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sshtunnel/internal/shared"
)

// Re-export the shared Home interface
type Home = shared.Home

// System locations used when running as root. SSHTUNNEL_HOME relocates
// the whole tree for tests and unprivileged development.
const (
	systemConfigDir = "/etc/sshtunnel"
	systemLogDir    = "/var/log/sshtunnel"
	systemRunDir    = "/run/sshtunnel"
)

// DirMode is the permission applied to every managed directory.
const DirMode = shared.DirMode

type serviceHome struct {
	configDir string
	confDDir  string
	logDir    string
	runDir    string
}

func NewServiceHome(ctx context.Context) Home {
	home := resolveHome()

	for _, dir := range []string{home.configDir, home.confDDir, home.logDir, home.runDir} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			// Creation is retried by the installer with proper
			// privileges; the manager reports the real error on first
			// use of the directory.
			continue
		}
		_ = os.Chmod(dir, DirMode)
	}

	return home
}

func (h *serviceHome) ConfigDir() string {
	return h.configDir
}

func (h *serviceHome) ConfDDir() string {
	return h.confDDir
}

func (h *serviceHome) LogDir() string {
	return h.logDir
}

func (h *serviceHome) RunDir() string {
	return h.runDir
}

func (h *serviceHome) ServiceLogFile() string {
	return filepath.Join(h.logDir, "sshtunnel.log")
}

func (h *serviceHome) SystemConfigFile() string {
	return filepath.Join(h.configDir, "system.yaml")
}

func resolveHome() *serviceHome {
	if base := os.Getenv("SSHTUNNEL_HOME"); base != "" {
		return &serviceHome{
			configDir: filepath.Join(base, "etc"),
			confDDir:  filepath.Join(base, "etc", "conf.d"),
			logDir:    filepath.Join(base, "log"),
			runDir:    filepath.Join(base, "run"),
		}
	}
	return &serviceHome{
		configDir: systemConfigDir,
		confDDir:  filepath.Join(systemConfigDir, "conf.d"),
		logDir:    systemLogDir,
		runDir:    systemRunDir,
	}
}
