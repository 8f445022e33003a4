package installer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/shared"
	"github.com/sshtunnel/internal/tunnel"
)

type Uninstaller struct {
	home   shared.Home
	logger log.Logger
	// installDir overridable for tests
	installDir string
	// prompt/answer streams; os.Stdin and os.Stdout by default
	in  io.Reader
	out io.Writer
}

func NewUninstaller(home shared.Home, logger log.Logger) *Uninstaller {
	return &Uninstaller{
		home:       home,
		logger:     logger,
		installDir: installDir,
		in:         os.Stdin,
		out:        os.Stdout,
	}
}

func NewUninstallerWithIO(home shared.Home, logger log.Logger, installDir string, in io.Reader, out io.Writer) *Uninstaller {
	u := NewUninstaller(home, logger)
	if installDir != "" {
		u.installDir = installDir
	}
	u.in = in
	u.out = out
	return u
}

// Run stops every recorded tunnel process, removes the installed
// binary and symlink, and purges the configuration, log and runtime
// directories only on explicit confirmation.
func (u *Uninstaller) Run() error {
	if err := RequireRoot(); err != nil {
		return err
	}

	if err := tunnel.SweepRunDir(u.home.RunDir(), u.logger); err != nil {
		u.logger.Warnf("failed to sweep runtime directory: %v", err)
	}

	u.removeBinary()

	if u.confirmPurge() {
		u.purgeDirectories()
	} else {
		u.logger.Infof("keeping configuration, log and runtime directories")
	}

	u.logger.Infof("uninstallation finished")
	return nil
}

func (u *Uninstaller) removeBinary() {
	for _, name := range []string{symlinkName, binaryName} {
		path := filepath.Join(u.installDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			u.logger.Warnf("failed to remove %s: %v", path, err)
		}
	}
	completion := filepath.Join(completionD, symlinkName)
	if err := os.Remove(completion); err != nil && !os.IsNotExist(err) {
		u.logger.Warnf("failed to remove %s: %v", completion, err)
	}
}

// confirmPurge asks before destroying user data. Anything but y/yes
// keeps the directories.
func (u *Uninstaller) confirmPurge() bool {
	fmt.Fprintf(u.out, "Remove configuration, log and runtime directories? [y/N] ")
	scanner := bufio.NewScanner(u.in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func (u *Uninstaller) purgeDirectories() {
	for _, dir := range []string{u.home.ConfigDir(), u.home.LogDir(), u.home.RunDir()} {
		if err := os.RemoveAll(dir); err != nil {
			u.logger.Errorf("failed to remove %s: %v", dir, err)
		} else {
			u.logger.Infof("removed %s", dir)
		}
	}
}
