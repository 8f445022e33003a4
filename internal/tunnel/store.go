package tunnel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sshtunnel/internal/shared"
)

// Store reads and writes the JSON drop-ins under conf.d.
type Store interface {
	List() ([]string, error)
	Exists(name string) bool
	Load(name string) (*Config, error)
	Save(name string, config *Config) error
	AddTunnel(configName, tunnelName, tunnelType string, params []string) error
	RemoveTunnel(configName, tunnelName string) (int, error)
}

type fileStore struct {
	home shared.Home
}

func NewStore(home shared.Home) Store {
	return &fileStore{home: home}
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.home.ConfDDir(), name+".json")
}

// List returns the config names (file names without .json), sorted.
func (s *fileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.home.ConfDDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *fileStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *fileStore) Load(name string) (*Config, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration %s not found", name)
		}
		return nil, fmt.Errorf("failed to read configuration %s: %w", name, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", name, err)
	}
	return &config, nil
}

// Save writes the config as indented JSON with the same group-only
// permissions the installer seeds configs with.
func (s *fileStore) Save(name string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", name, err)
	}
	return nil
}

// AddTunnel appends a tunnel entry, enforcing the parameter arity of
// the forwarding type. The entry is keyed by its listen port.
func (s *fileStore) AddTunnel(configName, tunnelName, tunnelType string, params []string) error {
	config, err := s.Load(configName)
	if err != nil {
		return err
	}

	var entry Tunnel
	switch tunnelType {
	case TypeLocal:
		if len(params) != 3 {
			return fmt.Errorf("usage: -L listen_port endpoint_host endpoint_port")
		}
		listen, err := parsePort(params[0])
		if err != nil {
			return err
		}
		endpoint, err := parsePort(params[2])
		if err != nil {
			return err
		}
		entry = Tunnel{Name: tunnelName, ListenPort: listen, EndpointHost: params[1], EndpointPort: endpoint}
	case TypeRemote:
		if len(params) != 4 {
			return fmt.Errorf("usage: -R listen_host listen_port endpoint_host endpoint_port")
		}
		listen, err := parsePort(params[1])
		if err != nil {
			return err
		}
		endpoint, err := parsePort(params[3])
		if err != nil {
			return err
		}
		entry = Tunnel{Name: tunnelName, ListenHost: params[0], ListenPort: listen, EndpointHost: params[2], EndpointPort: endpoint}
	case TypeDynamic:
		if len(params) != 1 {
			return fmt.Errorf("usage: -D listen_port")
		}
		listen, err := parsePort(params[0])
		if err != nil {
			return err
		}
		entry = Tunnel{Name: tunnelName, ListenPort: listen}
	default:
		return fmt.Errorf("invalid tunnel type %q", tunnelType)
	}

	if config.Tunnels == nil {
		config.Tunnels = map[string]map[string]Tunnel{}
	}
	if config.Tunnels[tunnelType] == nil {
		config.Tunnels[tunnelType] = map[string]Tunnel{}
	}
	config.Tunnels[tunnelType][entry.ListenPort.String()] = entry

	return s.Save(configName, config)
}

// RemoveTunnel deletes every tunnel whose name matches and reports how
// many were removed. The config is only rewritten when something
// matched.
func (s *fileStore) RemoveTunnel(configName, tunnelName string) (int, error) {
	config, err := s.Load(configName)
	if err != nil {
		return 0, err
	}

	removed := 0
	for tunnelType, tunnels := range config.Tunnels {
		for port, t := range tunnels {
			if t.Name == tunnelName {
				delete(config.Tunnels[tunnelType], port)
				removed++
			}
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, s.Save(configName, config)
}

func parsePort(value string) (Port, error) {
	var p Port
	if err := p.UnmarshalJSON([]byte(`"` + value + `"`)); err != nil {
		return 0, err
	}
	if p <= 0 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", int(p))
	}
	return p, nil
}
