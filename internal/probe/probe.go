package probe

import (
	"context"
	"fmt"
	"math"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober answers the three connectivity questions the check command
// asks: can a TCP port be reached, does a host answer ICMP, and is a
// port in the local listener table. Implementations report latencies
// in milliseconds, nil meaning the probe failed.
type Prober interface {
	PortOpen(host string, port int) *float64
	HostReachable(host string) *float64
	PortListening(host string, port int) bool
}

type execProber struct {
	dialTimeout time.Duration
	pingTimeout time.Duration
	pingCount   int
}

func NewProber(dialTimeout, pingTimeout time.Duration, pingCount int) Prober {
	return &execProber{
		dialTimeout: dialTimeout,
		pingTimeout: pingTimeout,
		pingCount:   pingCount,
	}
}

// PortOpen dials host:port and reports the connect latency.
func (p *execProber) PortOpen(host string, port int) *float64 {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), p.dialTimeout)
	if err != nil {
		return nil
	}
	defer conn.Close()
	return latencySince(start)
}

// HostReachable shells out to ping and reports the elapsed time
// unless the probe times out; an unreachable verdict comes from the
// timeout, not the exit code.
func (p *execProber) HostReachable(host string) *float64 {
	ctx, cancel := context.WithTimeout(context.Background(), p.pingTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, "ping",
		"-c", strconv.Itoa(p.pingCount),
		"-W", "1",
		"-i", "0.01",
		host)
	cmd.Stdout = nil
	cmd.Stderr = nil
	_ = cmd.Run()
	if ctx.Err() != nil {
		return nil
	}
	return latencySince(start)
}

// PortListening scans the local listener table via netstat, matching
// the tooling the installer provisions.
func (p *execProber) PortListening(host string, port int) bool {
	out, err := exec.Command("netstat", "-tln").Output()
	if err != nil {
		return false
	}
	return listenerTableHas(string(out), host, port)
}

func listenerTableHas(table, host string, port int) bool {
	needle := fmt.Sprintf("%s:%d", host, port)
	for _, line := range strings.Split(table, "\n") {
		if strings.Contains(line, needle) && strings.Contains(line, "LISTEN") {
			return true
		}
	}
	return false
}

func latencySince(start time.Time) *float64 {
	ms := math.Round(float64(time.Since(start).Microseconds())/100) / 10
	return &ms
}
