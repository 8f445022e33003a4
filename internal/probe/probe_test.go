package probe

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortOpen(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	prober := NewProber(time.Second, time.Second, 1)

	latency := prober.PortOpen("127.0.0.1", port)
	require.NotNil(t, latency)
	assert.GreaterOrEqual(t, *latency, 0.0)
}

func TestPortOpen_Closed(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	prober := NewProber(200*time.Millisecond, time.Second, 1)

	assert.Nil(t, prober.PortOpen("127.0.0.1", port))
}

func TestListenerTableHas(t *testing.T) {
	table := `Active Internet connections (only servers)
Proto Recv-Q Send-Q Local Address           Foreign Address         State
tcp        0      0 0.0.0.0:8080            0.0.0.0:*               LISTEN
tcp        0      0 127.0.0.1:1080          0.0.0.0:*               LISTEN
tcp        0      0 10.0.0.3:45678          10.0.0.9:443            ESTABLISHED
`

	assert.True(t, listenerTableHas(table, "0.0.0.0", 8080))
	assert.True(t, listenerTableHas(table, "127.0.0.1", 1080))
	assert.False(t, listenerTableHas(table, "0.0.0.0", 1080))
	// Established connections are not listeners.
	assert.False(t, listenerTableHas(table, "10.0.0.3", 45678))
	assert.False(t, listenerTableHas(table, "0.0.0.0", 9999))
}

func TestLatencySince_Rounding(t *testing.T) {
	latency := latencySince(time.Now().Add(-1234 * time.Microsecond))
	require.NotNil(t, latency)
	assert.InDelta(t, 1.2, *latency, 0.2)
}
