package tunnel

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Forwarding types, named after the ssh flags they map to.
const (
	TypeLocal   = "-L"
	TypeRemote  = "-R"
	TypeDynamic = "-D"
)

// Port accepts both JSON numbers and quoted strings: hand-written
// configs use numbers while tunnels added through the CLI historically
// stored their parameters as strings.
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", s, err)
		}
		*p = Port(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Port(n)
	return nil
}

func (p Port) String() string {
	return strconv.Itoa(int(p))
}

// Tunnel is one forwarding entry inside a config. Which fields are
// required depends on the forwarding type.
type Tunnel struct {
	Name         string `json:"name"`
	ListenHost   string `json:"listen_host,omitempty"`
	ListenPort   Port   `json:"listen_port,omitempty"`
	EndpointHost string `json:"endpoint_host,omitempty"`
	EndpointPort Port   `json:"endpoint_port,omitempty"`
}

type Options struct {
	KeepaliveInterval int `json:"keepalive_interval,omitempty"`
}

type Bandwidth struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Config is one JSON drop-in under conf.d. Tunnels are grouped by
// forwarding type, then keyed by listen port.
type Config struct {
	User      string                       `json:"user"`
	IP        string                       `json:"ip"`
	SSHPort   int                          `json:"ssh_port"`
	SSHKey    string                       `json:"ssh_key"`
	Tunnels   map[string]map[string]Tunnel `json:"tunnels"`
	Options   *Options                     `json:"options,omitempty"`
	Bandwidth *Bandwidth                   `json:"bandwidth,omitempty"`
}

// Validate checks the required top-level fields and the per-type
// tunnel fields. Errors name the offending field.
func (c *Config) Validate() error {
	switch {
	case c.User == "":
		return fmt.Errorf("missing required field: user")
	case c.IP == "":
		return fmt.Errorf("missing required field: ip")
	case c.SSHPort == 0:
		return fmt.Errorf("missing required field: ssh_port")
	case c.SSHKey == "":
		return fmt.Errorf("missing required field: ssh_key")
	case c.Tunnels == nil:
		return fmt.Errorf("missing required field: tunnels")
	}

	for tunnelType, tunnels := range c.Tunnels {
		for port, t := range tunnels {
			if t.Name == "" {
				return fmt.Errorf("tunnel %s/%s: every tunnel must have a name", tunnelType, port)
			}
			switch tunnelType {
			case TypeLocal:
				if t.ListenPort == 0 || t.EndpointHost == "" || t.EndpointPort == 0 {
					return fmt.Errorf("tunnel %s: -L requires listen_port, endpoint_host and endpoint_port", t.Name)
				}
			case TypeRemote:
				if t.ListenHost == "" || t.ListenPort == 0 || t.EndpointHost == "" || t.EndpointPort == 0 {
					return fmt.Errorf("tunnel %s: -R requires listen_host, listen_port, endpoint_host and endpoint_port", t.Name)
				}
			case TypeDynamic:
				if t.ListenPort == 0 {
					return fmt.Errorf("tunnel %s: -D requires listen_port", t.Name)
				}
			default:
				return fmt.Errorf("tunnel %s: unknown forwarding type %q", t.Name, tunnelType)
			}
		}
	}
	return nil
}
