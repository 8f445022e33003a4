package installer

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/shared"
)

// System packages the manager depends on at runtime. python3 from the
// historical install script is gone; the manager is a static binary.
var Packages = []string{
	"jq",
	"autossh",
	"sshpass",
	"netcat-openbsd",
	"curl",
	"openssh-client",
	"trickle",
	"net-tools",
	"iputils-ping",
}

// Tools the manager shells out to. Checked on every CLI invocation.
var RequiredTools = []string{
	"ssh",
	"ping",
	"netstat",
	"nc",
	"ssh-keygen",
	"trickle",
	"autossh",
	"sshpass",
}

const (
	installDir  = "/usr/local/bin"
	binaryName  = "sshtunnel-manager"
	symlinkName = "sshtunnel"
	completionD = "/etc/bash_completion.d"
	binaryMode  = os.FileMode(0o755)
	configMode  = os.FileMode(0o640)
)

// RequireRoot fails unless the effective UID is 0. Both binaries call
// this before touching anything, so a non-root run has no side
// effects.
func RequireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must be run as root")
	}
	return nil
}

// MissingTools returns the required external tools absent from PATH.
func MissingTools() []string {
	var missing []string
	for _, tool := range RequiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// Options configures an install run. Zero values fall back to the
// standard system locations.
type Options struct {
	// BinarySource is the manager binary to install.
	BinarySource string
	// InstallDir overrides /usr/local/bin (tests).
	InstallDir string
	// ConfigSources are JSON tunnel configs seeded into conf.d.
	ConfigSources []string
	// SkipPackages disables the package-manager step.
	SkipPackages bool
}

type Installer struct {
	home   shared.Home
	logger log.Logger
	opts   Options
}

func NewInstaller(home shared.Home, logger log.Logger, opts Options) *Installer {
	if opts.InstallDir == "" {
		opts.InstallDir = installDir
	}
	return &Installer{home: home, logger: logger, opts: opts}
}

// Run performs the install. Past the root check everything is best
// effort: failures are logged and the remaining steps still run,
// matching the || true semantics of the historical script.
func (i *Installer) Run() error {
	if err := RequireRoot(); err != nil {
		return err
	}

	if !i.opts.SkipPackages {
		i.installPackages()
	}

	i.createDirectories()

	if i.opts.BinarySource != "" {
		if err := i.installBinary(); err != nil {
			i.logger.Errorf("binary installation failed: %v", err)
		} else {
			i.installCompletion()
		}
	}

	i.seedConfigs()

	i.logger.Infof("installation finished")
	return nil
}

// installPackages detects the system package manager and installs the
// dependency list in one transaction.
func (i *Installer) installPackages() {
	managers := [][]string{
		{"apt-get", "install", "-y"},
		{"dnf", "install", "-y"},
		{"yum", "install", "-y"},
		{"zypper", "install", "-y"},
		{"apk", "add"},
	}

	for _, mgr := range managers {
		if _, err := exec.LookPath(mgr[0]); err != nil {
			continue
		}
		args := append(mgr[1:], Packages...)
		i.logger.Infof("installing packages with %s", mgr[0])
		cmd := exec.Command(mgr[0], args...)
		cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
		if out, err := cmd.CombinedOutput(); err != nil {
			i.logger.Warnf("package installation failed (continuing): %v: %s", err, string(out))
		}
		return
	}
	i.logger.Warnf("no supported package manager found, skipping dependency installation")
}

func (i *Installer) createDirectories() {
	for _, dir := range []string{i.home.ConfigDir(), i.home.ConfDDir(), i.home.LogDir(), i.home.RunDir()} {
		if err := os.MkdirAll(dir, shared.DirMode); err != nil {
			i.logger.Errorf("failed to create %s: %v", dir, err)
			continue
		}
		if err := os.Chmod(dir, shared.DirMode); err != nil {
			i.logger.Warnf("failed to set permissions on %s: %v", dir, err)
		}
		if err := os.Chown(dir, 0, 0); err != nil {
			i.logger.Warnf("failed to set ownership on %s: %v", dir, err)
		}
		i.logger.Infof("directory %s ready (mode %o)", dir, shared.DirMode)
	}
}

func (i *Installer) installBinary() error {
	target := filepath.Join(i.opts.InstallDir, binaryName)
	if err := copyFile(i.opts.BinarySource, target, binaryMode); err != nil {
		return err
	}

	link := filepath.Join(i.opts.InstallDir, symlinkName)
	_ = os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to create symlink %s: %w", link, err)
	}

	i.logger.Infof("installed %s with symlink %s", target, link)
	return nil
}

// installCompletion asks the installed binary for its bash completion
// script. Best effort; hosts without bash-completion just skip it.
func (i *Installer) installCompletion() {
	if _, err := os.Stat(completionD); err != nil {
		return
	}
	out, err := exec.Command(filepath.Join(i.opts.InstallDir, binaryName), "completion", "bash").Output()
	if err != nil {
		i.logger.Warnf("failed to generate shell completion: %v", err)
		return
	}
	path := filepath.Join(completionD, symlinkName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		i.logger.Warnf("failed to install shell completion: %v", err)
		return
	}
	i.logger.Infof("installed bash completion at %s", path)
}

func (i *Installer) seedConfigs() {
	for _, src := range i.opts.ConfigSources {
		target := filepath.Join(i.home.ConfDDir(), filepath.Base(src))
		if err := copyFile(src, target, configMode); err != nil {
			i.logger.Errorf("failed to install config %s: %v", src, err)
			continue
		}
		if err := os.Chown(target, 0, 0); err != nil {
			i.logger.Warnf("failed to set ownership on %s: %v", target, err)
		}
		i.logger.Infof("installed configuration %s (mode %o)", target, configMode)
	}
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", dst, err)
	}
	// Mode on OpenFile does not apply when the file already existed.
	return os.Chmod(dst, mode)
}
