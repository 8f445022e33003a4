// Package history optionally records connectivity check reports to
// Postgres, with an in-memory cache in front for latest-result reads.
package history

import (
	"context"
	"time"

	"github.com/sshtunnel/internal/probe"
)

// Record is one stored check report.
type Record struct {
	ID         int64         `json:"id"`
	ConfigName string        `json:"config_name"`
	Report     *probe.Report `json:"report"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Service is what the check path talks to. Record is best effort from
// the caller's point of view: a failed write must not fail the check.
type Service interface {
	Record(ctx context.Context, configName string, report *probe.Report) error
	Latest(configName string) (*Record, bool)
	Recent(ctx context.Context, configName string, limit int) ([]Record, error)
	Close() error
}
