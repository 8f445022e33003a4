package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/shared"
	"github.com/sshtunnel/internal/tunnel"
)

type fakeHome struct {
	base string
}

func newFakeHome(t *testing.T) *fakeHome {
	t.Helper()
	h := &fakeHome{base: t.TempDir()}
	require.NoError(t, os.MkdirAll(h.ConfDDir(), shared.DirMode))
	return h
}

func (h *fakeHome) ConfigDir() string        { return filepath.Join(h.base, "etc") }
func (h *fakeHome) ConfDDir() string         { return filepath.Join(h.base, "etc", "conf.d") }
func (h *fakeHome) LogDir() string           { return filepath.Join(h.base, "log") }
func (h *fakeHome) RunDir() string           { return filepath.Join(h.base, "run") }
func (h *fakeHome) ServiceLogFile() string   { return filepath.Join(h.LogDir(), "sshtunnel.log") }
func (h *fakeHome) SystemConfigFile() string { return filepath.Join(h.ConfigDir(), "system.yaml") }

// fakeProber answers from fixed tables: hosts that ping, ports that
// accept, ports in the listener table.
type fakeProber struct {
	openPorts      map[string]float64
	reachableHosts map[string]float64
	listening      map[int]bool

	pingedHosts []string
}

func portKey(host string, port int) string {
	return host + ":" + tunnel.Port(port).String()
}

func (f *fakeProber) PortOpen(host string, port int) *float64 {
	if latency, ok := f.openPorts[portKey(host, port)]; ok {
		return &latency
	}
	return nil
}

func (f *fakeProber) HostReachable(host string) *float64 {
	f.pingedHosts = append(f.pingedHosts, host)
	if latency, ok := f.reachableHosts[host]; ok {
		return &latency
	}
	return nil
}

func (f *fakeProber) PortListening(host string, port int) bool {
	return f.listening[port]
}

func saveConfig(t *testing.T, store tunnel.Store, name, ip string) {
	t.Helper()
	require.NoError(t, store.Save(name, &tunnel.Config{
		User:    "tunnel_user",
		IP:      ip,
		SSHPort: 22,
		SSHKey:  "/root/.ssh/" + name + "_key",
		Tunnels: map[string]map[string]tunnel.Tunnel{},
	}))
}

func TestChecker_CheckAll(t *testing.T) {
	store := tunnel.NewStore(newFakeHome(t))
	saveConfig(t, store, "office", "203.0.113.10")
	saveConfig(t, store, "datacenter", "203.0.113.20")

	prober := &fakeProber{
		openPorts: map[string]float64{"203.0.113.10:22": 4.2},
	}
	checker := NewChecker(store, prober, log.NewDefaultLogger())

	report, err := checker.CheckAll()
	require.NoError(t, err)
	require.Len(t, report.Servers, 2)

	byName := map[string]ServerStatus{}
	for _, s := range report.Servers {
		byName[s.Name] = s
	}

	office := byName["office"]
	assert.True(t, office.TCP.Status)
	assert.True(t, office.ICMP.Status)
	require.NotNil(t, office.ICMP.LatencyMs)
	assert.Equal(t, 4.2, *office.ICMP.LatencyMs)

	datacenter := byName["datacenter"]
	assert.False(t, datacenter.TCP.Status)
	assert.False(t, datacenter.ICMP.Status)
}

func TestChecker_TCPFirstSkipsPing(t *testing.T) {
	store := tunnel.NewStore(newFakeHome(t))
	saveConfig(t, store, "office", "203.0.113.10")

	prober := &fakeProber{
		openPorts:      map[string]float64{"203.0.113.10:22": 1.5},
		reachableHosts: map[string]float64{"203.0.113.10": 9.9},
	}
	checker := NewChecker(store, prober, log.NewDefaultLogger())

	_, err := checker.CheckConfig("office")
	require.NoError(t, err)

	// The SSH port answered, so no ICMP probe was sent.
	assert.Empty(t, prober.pingedHosts)
}

func TestChecker_PingFallback(t *testing.T) {
	store := tunnel.NewStore(newFakeHome(t))
	saveConfig(t, store, "office", "203.0.113.10")

	prober := &fakeProber{
		reachableHosts: map[string]float64{"203.0.113.10": 9.9},
	}
	checker := NewChecker(store, prober, log.NewDefaultLogger())

	report, err := checker.CheckConfig("office")
	require.NoError(t, err)

	server := report.Servers[0]
	assert.False(t, server.TCP.Status)
	assert.True(t, server.ICMP.Status)
	assert.Contains(t, prober.pingedHosts, "203.0.113.10")
}

func TestChecker_CheckConfigTunnels(t *testing.T) {
	store := tunnel.NewStore(newFakeHome(t))
	saveConfig(t, store, "office", "203.0.113.10")
	require.NoError(t, store.AddTunnel("office", "web", tunnel.TypeLocal, []string{"8080", "10.0.0.5", "80"}))
	require.NoError(t, store.AddTunnel("office", "socks", tunnel.TypeDynamic, []string{"1080"}))
	require.NoError(t, store.AddTunnel("office", "callback", tunnel.TypeRemote, []string{"203.0.113.10", "2222", "127.0.0.1", "22"}))

	prober := &fakeProber{
		openPorts: map[string]float64{
			"203.0.113.10:22":   1.0,
			"203.0.113.10:2222": 2.0,
			"10.0.0.5:80":       3.0,
			"127.0.0.1:22":      0.5,
		},
		listening: map[int]bool{8080: true},
	}
	checker := NewChecker(store, prober, log.NewDefaultLogger())

	report, err := checker.CheckConfig("office")
	require.NoError(t, err)
	require.Len(t, report.Tunnels, 3)

	byName := map[string]TunnelStatus{}
	for _, s := range report.Tunnels {
		byName[s.Name] = s
	}

	web := byName["web"]
	require.NotNil(t, web.ListenPort)
	assert.True(t, web.ListenPort.Status)
	require.NotNil(t, web.EndpointPort)
	assert.True(t, web.EndpointPort.Status)
	assert.Nil(t, web.ListenHost)

	socks := byName["socks"]
	require.NotNil(t, socks.ListenPort)
	assert.False(t, socks.ListenPort.Status)
	assert.Nil(t, socks.EndpointPort)

	callback := byName["callback"]
	require.NotNil(t, callback.ListenPort)
	assert.True(t, callback.ListenPort.Status)
	require.NotNil(t, callback.ListenHost)
	require.NotNil(t, callback.EndpointPort)
	assert.True(t, callback.EndpointPort.Status)
}

func TestChecker_CheckConfigNotFound(t *testing.T) {
	checker := NewChecker(tunnel.NewStore(newFakeHome(t)), &fakeProber{}, log.NewDefaultLogger())

	_, err := checker.CheckConfig("ghost")
	assert.Error(t, err)
}

func TestChecker_CheckAllSkipsBroken(t *testing.T) {
	home := newFakeHome(t)
	store := tunnel.NewStore(home)
	saveConfig(t, store, "office", "203.0.113.10")
	require.NoError(t, os.WriteFile(filepath.Join(home.ConfDDir(), "broken.json"), []byte("{"), 0o640))

	checker := NewChecker(store, &fakeProber{}, log.NewDefaultLogger())

	report, err := checker.CheckAll()
	require.NoError(t, err)
	require.Len(t, report.Servers, 1)
	assert.Equal(t, "office", report.Servers[0].Name)
}
