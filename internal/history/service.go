package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sshtunnel/internal/config"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/monitoring/metrics"
	"github.com/sshtunnel/internal/probe"
)

type service struct {
	repository *PostgresRepository
	cache      *latestCache
	logger     log.Logger
	timeout    time.Duration
}

// NewService connects to the configured Postgres and prepares the
// schema. The caller decides whether history is enabled at all.
func NewService(ctx context.Context, cfg config.HistoryConfig, logger log.Logger) (Service, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("history enabled but no database URL configured")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	timeout := time.Duration(cfg.QueryTimeoutSecs) * time.Second
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history database unreachable: %w", err)
	}

	repository := NewPostgresRepository(db)
	if err := repository.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &service{
		repository: repository,
		cache:      newLatestCache(),
		logger:     logger,
		timeout:    timeout,
	}, nil
}

func (s *service) Record(ctx context.Context, configName string, report *probe.Report) error {
	now := time.Now()
	s.cache.put(configName, report, now)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.repository.Insert(ctx, configName, report, now)
	if err != nil {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warnf("failed to record check report for %s: %v", configName, err)
		return err
	}
	metrics.HistoryWritesTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *service) Latest(configName string) (*Record, bool) {
	return s.cache.get(configName)
}

func (s *service) Recent(ctx context.Context, configName string, limit int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repository.Recent(ctx, configName, limit)
}

func (s *service) Close() error {
	return s.repository.Close()
}
