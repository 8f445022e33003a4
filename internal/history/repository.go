package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sshtunnel/internal/probe"
)

// PostgresRepository persists check reports as JSON rows.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the history table when it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS check_reports (
			id BIGSERIAL PRIMARY KEY,
			config_name TEXT NOT NULL,
			report JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create check_reports table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, configName string, report *probe.Report, at time.Time) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	query := `
		INSERT INTO check_reports (config_name, report, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, configName, payload, at); err != nil {
		return fmt.Errorf("failed to insert check report for %s: %w", configName, err)
	}
	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, configName string, limit int) ([]Record, error) {
	query := `
		SELECT id, config_name, report, created_at
		FROM check_reports
		WHERE config_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, configName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check reports for %s: %w", configName, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		var payload []byte
		if err := rows.Scan(&record.ID, &record.ConfigName, &payload, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check report: %w", err)
		}
		record.Report = &probe.Report{}
		if err := json.Unmarshal(payload, record.Report); err != nil {
			return nil, fmt.Errorf("failed to decode check report %d: %w", record.ID, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
