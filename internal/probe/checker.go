package probe

import (
	"time"

	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/monitoring/metrics"
	"github.com/sshtunnel/internal/tunnel"
)

// Checker builds check reports from tunnel configurations. Server
// reachability is probed TCP-first: when the SSH port answers, its
// latency doubles as the ICMP figure and no ping is sent.
type Checker struct {
	store  tunnel.Store
	prober Prober
	logger log.Logger
}

func NewChecker(store tunnel.Store, prober Prober, logger log.Logger) *Checker {
	return &Checker{
		store:  store,
		prober: prober,
		logger: logger,
	}
}

// CheckAll probes the SSH endpoint of every configuration.
func (c *Checker) CheckAll() (*Report, error) {
	names, err := c.store.List()
	if err != nil {
		return nil, err
	}

	report := &Report{Servers: []ServerStatus{}}
	for _, name := range names {
		config, err := c.store.Load(name)
		if err != nil {
			c.logger.Warnf("skipping %s: %v", name, err)
			continue
		}
		report.Servers = append(report.Servers, c.probeServer(name, config))
	}
	return report, nil
}

// CheckConfig probes one configuration's SSH endpoint and each of its
// tunnels.
func (c *Checker) CheckConfig(name string) (*Report, error) {
	config, err := c.store.Load(name)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Servers: []ServerStatus{c.probeServer(name, config)},
		Tunnels: []TunnelStatus{},
	}

	for _, tunnelType := range []string{tunnel.TypeLocal, tunnel.TypeRemote, tunnel.TypeDynamic} {
		for _, t := range config.Tunnels[tunnelType] {
			report.Tunnels = append(report.Tunnels, c.probeTunnel(tunnelType, t))
		}
	}
	return report, nil
}

func (c *Checker) probeServer(name string, config *tunnel.Config) ServerStatus {
	start := time.Now()
	portLatency := c.prober.PortOpen(config.IP, config.SSHPort)

	var pingLatency *float64
	portStatus := portLatency != nil
	if portStatus {
		pingLatency = portLatency
	} else {
		pingLatency = c.prober.HostReachable(config.IP)
	}
	metrics.ObserveProbe("server", time.Since(start), portStatus)

	return ServerStatus{
		Name: name,
		ICMP: HostStatus{Host: config.IP, Status: pingLatency != nil, LatencyMs: pingLatency},
		TCP:  PortStatus{Port: config.SSHPort, Status: portStatus, LatencyMs: portLatency},
	}
}

func (c *Checker) probeTunnel(tunnelType string, t tunnel.Tunnel) TunnelStatus {
	status := TunnelStatus{Name: t.Name}
	one := 1.0

	switch tunnelType {
	case tunnel.TypeLocal, tunnel.TypeDynamic:
		// Local forwards listen on this host; consult the listener
		// table instead of dialing ourselves.
		listening := c.prober.PortListening("0.0.0.0", int(t.ListenPort))
		status.ListenPort = &PortStatus{
			Port:      int(t.ListenPort),
			Status:    listening,
			LatencyMs: &one,
		}
	case tunnel.TypeRemote:
		listenLatency := c.prober.PortOpen(t.ListenHost, int(t.ListenPort))
		status.ListenPort = &PortStatus{
			Port:      int(t.ListenPort),
			Status:    listenLatency != nil,
			LatencyMs: listenLatency,
		}
		if listenLatency == nil {
			status.ListenHost = &HostPing{Host: t.ListenHost, LatencyMs: c.prober.HostReachable(t.ListenHost)}
		} else {
			status.ListenHost = &HostPing{Host: t.ListenHost, LatencyMs: listenLatency}
		}
	}

	if tunnelType == tunnel.TypeLocal || tunnelType == tunnel.TypeRemote {
		endpointLatency := c.prober.PortOpen(t.EndpointHost, int(t.EndpointPort))
		status.EndpointPort = &PortStatus{
			Port:      int(t.EndpointPort),
			Status:    endpointLatency != nil,
			LatencyMs: endpointLatency,
		}
		if endpointLatency == nil {
			status.EndpointHost = &HostPing{Host: t.EndpointHost, LatencyMs: c.prober.HostReachable(t.EndpointHost)}
		} else {
			status.EndpointHost = &HostPing{Host: t.EndpointHost, LatencyMs: endpointLatency}
		}
	}

	return status
}
