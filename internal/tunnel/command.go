package tunnel

import (
	"fmt"
	"sort"
)

// buildCommand assembles the supervised tunnel process argv:
// autossh in monitorless mode, no remote command, one forwarding flag
// per tunnel, optionally wrapped in trickle when bandwidth limits are
// configured.
func buildCommand(config *Config) []string {
	cmd := []string{
		"autossh", "-M", "0", "-N",
		"-i", config.SSHKey,
		fmt.Sprintf("%s@%s", config.User, config.IP),
		"-p", fmt.Sprintf("%d", config.SSHPort),
	}

	if config.Options != nil && config.Options.KeepaliveInterval > 0 {
		cmd = append(cmd, "-o", fmt.Sprintf("ServerAliveInterval=%d", config.Options.KeepaliveInterval))
	}

	for _, tunnelType := range sortedTypes(config.Tunnels) {
		tunnels := config.Tunnels[tunnelType]
		for _, port := range sortedPorts(tunnels) {
			t := tunnels[port]
			switch tunnelType {
			case TypeLocal:
				cmd = append(cmd, TypeLocal, fmt.Sprintf("%s:%s:%s", t.ListenPort, t.EndpointHost, t.EndpointPort))
			case TypeRemote:
				cmd = append(cmd, TypeRemote, fmt.Sprintf("%s:%s:%s:%s", t.ListenHost, t.ListenPort, t.EndpointHost, t.EndpointPort))
			case TypeDynamic:
				cmd = append(cmd, TypeDynamic, t.ListenPort.String())
			}
		}
	}

	if config.Bandwidth != nil {
		cmd = append([]string{
			"trickle",
			"-u", fmt.Sprintf("%d", config.Bandwidth.Up),
			"-d", fmt.Sprintf("%d", config.Bandwidth.Down),
		}, cmd...)
	}

	return cmd
}

// Map iteration order is randomized; sort so the argv is stable across
// restarts and in logs.
func sortedTypes(tunnels map[string]map[string]Tunnel) []string {
	types := make([]string, 0, len(tunnels))
	for t := range tunnels {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func sortedPorts(tunnels map[string]Tunnel) []string {
	ports := make([]string, 0, len(tunnels))
	for p := range tunnels {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
