package probe

// Report is the JSON document the check command prints: one entry per
// probed server, plus per-tunnel details when a single configuration
// is checked.
type Report struct {
	Servers []ServerStatus `json:"servers"`
	Tunnels []TunnelStatus `json:"tunnels,omitempty"`
}

type ServerStatus struct {
	Name string     `json:"name"`
	ICMP HostStatus `json:"icmp"`
	TCP  PortStatus `json:"tcp"`
}

type HostStatus struct {
	Host      string   `json:"host"`
	Status    bool     `json:"status"`
	LatencyMs *float64 `json:"latency_ms"`
}

type PortStatus struct {
	Port      int      `json:"port"`
	Status    bool     `json:"status"`
	LatencyMs *float64 `json:"latency_ms"`
}

// TunnelStatus carries whichever probes apply to the tunnel's
// forwarding type; the rest stay null.
type TunnelStatus struct {
	Name         string      `json:"name"`
	ListenPort   *PortStatus `json:"listen_port,omitempty"`
	ListenHost   *HostPing   `json:"listen_host,omitempty"`
	EndpointPort *PortStatus `json:"endpoint_port,omitempty"`
	EndpointHost *HostPing   `json:"endpoint_host,omitempty"`
}

type HostPing struct {
	Host      string   `json:"host"`
	LatencyMs *float64 `json:"latency_ms"`
}
