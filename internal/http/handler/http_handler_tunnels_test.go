package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sshtunnel/internal/http/utils"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/probe"
	"github.com/sshtunnel/internal/service"
	"github.com/sshtunnel/internal/tunnel"
)

// openPortProber reports every port open with a fixed latency.
type openPortProber struct{}

func (openPortProber) PortOpen(host string, port int) *float64 {
	latency := 2.5
	return &latency
}

func (openPortProber) HostReachable(host string) *float64 {
	latency := 5.0
	return &latency
}

func (openPortProber) PortListening(host string, port int) bool { return true }

func newTunnelHandlerFixture(t *testing.T) (TunnelHandler, tunnel.Store, service.Context) {
	t.Helper()
	ctx := newHandlerTestContext(t)
	logger := log.NewDefaultLogger()

	store := tunnel.NewStore(ctx.Home())
	manager := tunnel.NewManager(ctx.Home(), store, logger)
	checker := probe.NewChecker(store, openPortProber{}, logger)

	return NewTunnelHandler(ctx, manager, checker, nil), store, ctx
}

func saveTunnelConfig(t *testing.T, store tunnel.Store, name string) {
	t.Helper()
	require.NoError(t, store.Save(name, &tunnel.Config{
		User:    "tunnel_user",
		IP:      "203.0.113.10",
		SSHPort: 22,
		SSHKey:  "/root/.ssh/" + name + "_key",
		Tunnels: map[string]map[string]tunnel.Tunnel{
			tunnel.TypeLocal: {
				"8080": {Name: "web", ListenPort: 8080, EndpointHost: "10.0.0.5", EndpointPort: 80},
			},
		},
	}))
}

func decodeEnvelope(t *testing.T, body []byte) utils.APIResponse {
	t.Helper()
	var response utils.APIResponse
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

func TestTunnelHandler_StatusEmpty(t *testing.T) {
	handler, _, _ := newTunnelHandlerFixture(t)

	recorder := performRequest(t, handler.Status, http.MethodGet, "/tunnels")

	assert.Equal(t, http.StatusOK, recorder.Code)
	response := decodeEnvelope(t, recorder.Body.Bytes())
	assert.True(t, response.Success)
}

func TestTunnelHandler_CheckAll(t *testing.T) {
	handler, store, _ := newTunnelHandlerFixture(t)
	saveTunnelConfig(t, store, "office")

	recorder := performRequest(t, handler.CheckAll, http.MethodGet, "/tunnels/check")

	assert.Equal(t, http.StatusOK, recorder.Code)
	response := decodeEnvelope(t, recorder.Body.Bytes())
	require.True(t, response.Success)

	data, err := json.Marshal(response.Data)
	require.NoError(t, err)
	var report probe.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Servers, 1)
	assert.Equal(t, "office", report.Servers[0].Name)
	assert.True(t, report.Servers[0].TCP.Status)
}

func TestTunnelHandler_CheckConfig(t *testing.T) {
	handler, store, _ := newTunnelHandlerFixture(t)
	saveTunnelConfig(t, store, "office")

	recorder := performRequestURL(t, handler.CheckConfig, http.MethodGet,
		"/tunnels/check/:name", "/tunnels/check/office")

	assert.Equal(t, http.StatusOK, recorder.Code)
	response := decodeEnvelope(t, recorder.Body.Bytes())
	require.True(t, response.Success)

	data, err := json.Marshal(response.Data)
	require.NoError(t, err)
	var report probe.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Servers, 1)
	require.Len(t, report.Tunnels, 1)
	assert.Equal(t, "web", report.Tunnels[0].Name)
}

func TestTunnelHandler_CheckConfigNotFound(t *testing.T) {
	handler, _, _ := newTunnelHandlerFixture(t)

	recorder := performRequestURL(t, handler.CheckConfig, http.MethodGet,
		"/tunnels/check/:name", "/tunnels/check/ghost")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	response := decodeEnvelope(t, recorder.Body.Bytes())
	assert.False(t, response.Success)
	assert.NotEmpty(t, response.Error)
}

func TestTunnelHandler_HistoryDisabled(t *testing.T) {
	handler, _, _ := newTunnelHandlerFixture(t)

	recorder := performRequestURL(t, handler.History, http.MethodGet,
		"/tunnels/history/:name", "/tunnels/history/office")

	assert.Equal(t, http.StatusNotImplemented, recorder.Code)
	response := decodeEnvelope(t, recorder.Body.Bytes())
	assert.False(t, response.Success)
	assert.Contains(t, response.Error, "not enabled")
}
