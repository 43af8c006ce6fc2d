package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"garden_insights/internal/models"
)

type MetricSQLite struct {
	db *sql.DB
}

func NewMetricSQLite(db *sql.DB) *MetricSQLite { return &MetricSQLite{db: db} }

const (
	upsertMetricSQL = `
		INSERT INTO metrics (key, unit, ideal_min, ideal_max, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			unit=excluded.unit,
			ideal_min=excluded.ideal_min,
			ideal_max=excluded.ideal_max,
			description=excluded.description
	`

	selectMetricsSQL     = `SELECT key, unit, ideal_min, ideal_max, description FROM metrics ORDER BY key`
	selectMetricByKeySQL = `SELECT key, unit, ideal_min, ideal_max, description FROM metrics WHERE key = ?`
)

func (r *MetricSQLite) Upsert(ctx context.Context, m models.Metric) error {
	if m.IdealMin > m.IdealMax {
		return fmt.Errorf("metric %q: ideal min %g exceeds ideal max %g", m.Key, m.IdealMin, m.IdealMax)
	}
	if _, err := r.db.ExecContext(ctx, upsertMetricSQL, m.Key, m.Unit, m.IdealMin, m.IdealMax, m.Description); err != nil {
		return fmt.Errorf("upsert metric %q: %w", m.Key, err)
	}
	return nil
}

func (r *MetricSQLite) List(ctx context.Context) ([]models.Metric, error) {
	rows, err := r.db.QueryContext(ctx, selectMetricsSQL)
	if err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}
	defer rows.Close()

	var out []models.Metric
	for rows.Next() {
		var m models.Metric
		if err := rows.Scan(&m.Key, &m.Unit, &m.IdealMin, &m.IdealMax, &m.Description); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns (nil, nil) when the key is unknown.
func (r *MetricSQLite) Get(ctx context.Context, key string) (*models.Metric, error) {
	var m models.Metric
	err := r.db.QueryRowContext(ctx, selectMetricByKeySQL, key).
		Scan(&m.Key, &m.Unit, &m.IdealMin, &m.IdealMax, &m.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select metric %q: %w", key, err)
	}
	return &m, nil
}
