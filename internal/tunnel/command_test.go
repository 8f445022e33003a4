package tunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCommand_Basic(t *testing.T) {
	argv := buildCommand(validConfig())

	assert.Equal(t, []string{
		"autossh", "-M", "0", "-N",
		"-i", "/root/.ssh/office_key",
		"tunnel_user@203.0.113.10",
		"-p", "22",
		"-L", "8080:10.0.0.5:80",
	}, argv)
}

func TestBuildCommand_Keepalive(t *testing.T) {
	config := validConfig()
	config.Options = &Options{KeepaliveInterval: 30}

	argv := buildCommand(config)

	assert.Contains(t, argv, "-o")
	assert.Contains(t, argv, "ServerAliveInterval=30")
}

func TestBuildCommand_AllForwardingTypes(t *testing.T) {
	config := validConfig()
	config.Tunnels[TypeRemote] = map[string]Tunnel{
		"2222": {Name: "callback", ListenHost: "0.0.0.0", ListenPort: 2222, EndpointHost: "127.0.0.1", EndpointPort: 22},
	}
	config.Tunnels[TypeDynamic] = map[string]Tunnel{
		"1080": {Name: "socks", ListenPort: 1080},
	}

	argv := buildCommand(config)

	// Types sort as -D, -L, -R.
	assert.Equal(t, []string{
		"autossh", "-M", "0", "-N",
		"-i", "/root/.ssh/office_key",
		"tunnel_user@203.0.113.10",
		"-p", "22",
		"-D", "1080",
		"-L", "8080:10.0.0.5:80",
		"-R", "0.0.0.0:2222:127.0.0.1:22",
	}, argv)
}

func TestBuildCommand_BandwidthPrefix(t *testing.T) {
	config := validConfig()
	config.Bandwidth = &Bandwidth{Up: 256, Down: 512}

	argv := buildCommand(config)

	assert.Equal(t, []string{"trickle", "-u", "256", "-d", "512", "autossh"}, argv[:6])
}

func TestBuildCommand_StableOrder(t *testing.T) {
	config := validConfig()
	config.Tunnels[TypeLocal]["3306"] = Tunnel{Name: "mysql", ListenPort: 3306, EndpointHost: "10.0.0.7", EndpointPort: 3306}
	config.Tunnels[TypeLocal]["5432"] = Tunnel{Name: "pg", ListenPort: 5432, EndpointHost: "10.0.0.6", EndpointPort: 5432}

	first := buildCommand(config)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, buildCommand(config))
	}
}
