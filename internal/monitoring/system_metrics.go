package monitoring

import (
	"runtime"
	"time"

	"github.com/sshtunnel/internal/monitoring/metrics"
)

// SystemMetricsCollector feeds the serve-mode process gauges.
type SystemMetricsCollector struct {
	startTime time.Time
}

func NewSystemMetricsCollector() *SystemMetricsCollector {
	return &SystemMetricsCollector{startTime: time.Now()}
}

func (smc *SystemMetricsCollector) UpdateMetrics() {
	metrics.SystemUptime.Set(time.Since(smc.startTime).Seconds())
	metrics.SystemGoroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	metrics.SystemMemoryUsage.Set(float64(memStats.Alloc))
}

// StartPeriodicUpdates samples until the process exits.
func (smc *SystemMetricsCollector) StartPeriodicUpdates(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			smc.UpdateMetrics()
		}
	}()
}
