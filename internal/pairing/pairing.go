package pairing

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/tunnel"
)

// The remote account tunnels run under. Created without a login shell;
// its only purpose is to hold the authorized key.
const remoteUser = "tunnel_user"

// Request describes a pairing with a remote server: generate a
// dedicated keypair, authorize it for a fresh no-login user on the
// server, and write the initial tunnel configuration.
type Request struct {
	ConfigName string
	IP         string
	AdminUser  string
	Password   string
	// Bandwidth is "up/down" in KB/s, empty for no limit.
	Bandwidth string
}

type Pairer struct {
	store  tunnel.Store
	logger log.Logger
	keyDir string
}

func NewPairer(store tunnel.Store, logger log.Logger) *Pairer {
	return &Pairer{
		store:  store,
		logger: logger,
		keyDir: "/root/.ssh",
	}
}

// NewPairerWithKeyDir exists for tests and unprivileged runs.
func NewPairerWithKeyDir(store tunnel.Store, logger log.Logger, keyDir string) *Pairer {
	p := NewPairer(store, logger)
	p.keyDir = keyDir
	return p
}

func (p *Pairer) Pair(req Request) error {
	if req.ConfigName == "" || req.IP == "" || req.AdminUser == "" || req.Password == "" {
		return fmt.Errorf("pairing requires config name, ip, user and password")
	}

	keyPath := filepath.Join(p.keyDir, req.ConfigName+"_key")
	if err := p.generateKey(keyPath); err != nil {
		return err
	}

	if err := p.authorizeKey(req, keyPath); err != nil {
		return err
	}

	config := &tunnel.Config{
		User:    remoteUser,
		IP:      req.IP,
		SSHPort: 22,
		SSHKey:  keyPath,
		Tunnels: map[string]map[string]tunnel.Tunnel{},
	}

	if req.Bandwidth != "" {
		bandwidth, err := parseBandwidth(req.Bandwidth)
		if err != nil {
			return err
		}
		config.Bandwidth = bandwidth
	}

	if err := p.store.Save(req.ConfigName, config); err != nil {
		return err
	}

	p.logger.Infof("paired with %s, configuration %s written", req.IP, req.ConfigName)
	return nil
}

func (p *Pairer) generateKey(keyPath string) error {
	if err := os.MkdirAll(p.keyDir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	cmd := exec.Command("ssh-keygen", "-t", "ed25519", "-f", keyPath, "-N", "")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ssh-keygen failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if err := os.Chmod(keyPath, 0o600); err != nil {
		return fmt.Errorf("failed to restrict key permissions: %w", err)
	}
	return nil
}

// authorizeKey creates the tunnel user on the remote host and appends
// our public key, authenticating once with the admin password through
// sshpass.
func (p *Pairer) authorizeKey(req Request, keyPath string) error {
	pubKey, err := os.ReadFile(keyPath + ".pub")
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	remoteCmd := fmt.Sprintf(
		"useradd -m -s /bin/false %s && mkdir -p ~%s/.ssh && cat >> ~%s/.ssh/authorized_keys",
		remoteUser, remoteUser, remoteUser)

	cmd := exec.Command("sshpass", "-p", req.Password,
		"ssh", fmt.Sprintf("%s@%s", req.AdminUser, req.IP), remoteCmd)
	cmd.Stdin = strings.NewReader(string(pubKey))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("remote key installation failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func parseBandwidth(value string) (*tunnel.Bandwidth, error) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("bandwidth must be up/down, got %q", value)
	}
	up, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid upload limit %q: %w", parts[0], err)
	}
	down, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid download limit %q: %w", parts[1], err)
	}
	return &tunnel.Bandwidth{Up: up, Down: down}, nil
}
