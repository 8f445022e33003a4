package history

import (
	"sync"
	"time"

	"github.com/sshtunnel/internal/probe"
)

// latestCache keeps the most recent report per configuration so the
// HTTP layer can serve "current state" without a database round trip.
type latestCache struct {
	mu   sync.RWMutex
	data map[string]*Record
}

func newLatestCache() *latestCache {
	return &latestCache{data: make(map[string]*Record)}
}

func (c *latestCache) put(configName string, report *probe.Report, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[configName] = &Record{
		ConfigName: configName,
		Report:     report,
		CreatedAt:  at,
	}
}

func (c *latestCache) get(configName string) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.data[configName]
	return record, ok
}
