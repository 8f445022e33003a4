package shared

import "os"

// Directories are group-readable only: tunnel configs carry key paths
// and remote addresses.
const DirMode = os.FileMode(0o750)

// Home represents the on-disk layout the manager operates on:
// configuration with its conf.d drop-ins, per-tunnel logs and the
// runtime directory holding PID files.
type Home interface {
	ConfigDir() string
	ConfDDir() string
	LogDir() string
	RunDir() string
	ServiceLogFile() string
	SystemConfigFile() string
}
