package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"garden_insights/internal/models"

	"github.com/google/uuid"
)

type InsightSQLite struct {
	db *sql.DB
}

func NewInsightSQLite(db *sql.DB) *InsightSQLite { return &InsightSQLite{db: db} }

var _ InsightRepo = (*InsightSQLite)(nil)

const (
	// The NOT EXISTS guard makes check-then-create a single statement; the
	// partial unique index on open pairs backs it up.
	createInsightSQL = `
		INSERT INTO insights (id, zone_id, metric_key, rule, severity, explanation, confidence, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM insights WHERE zone_id = ? AND metric_key = ? AND resolved_at IS NULL
		)
	`

	selectInsightColumns = `SELECT id, zone_id, metric_key, rule, severity, explanation, confidence, created_at, resolved_at FROM insights`

	selectUnresolvedForPairSQL = selectInsightColumns +
		` WHERE zone_id = ? AND metric_key = ? AND resolved_at IS NULL LIMIT 1`

	selectUnresolvedDetailSQL = `
		SELECT i.id, i.zone_id, i.metric_key, i.rule, i.severity, i.explanation, i.confidence, i.created_at,
			z.garden_id, z.name, z.plant_type, z.exposure, g.orientation, z.created_at,
			m.unit, m.ideal_min, m.ideal_max, m.description
		FROM insights i
		JOIN zones z ON z.id = i.zone_id
		JOIN gardens g ON g.id = z.garden_id
		JOIN metrics m ON m.key = i.metric_key
		WHERE i.resolved_at IS NULL
		ORDER BY i.created_at ASC
	`

	resolveInsightSQL = `UPDATE insights SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`
)

func scanInsight(s rowScanner) (models.Insight, error) {
	var (
		in       models.Insight
		rule     string
		severity string
		created  int64
		resolved sql.NullInt64
	)
	if err := s.Scan(&in.ID, &in.ZoneID, &in.MetricKey, &rule, &severity,
		&in.Explanation, &in.Confidence, &created, &resolved); err != nil {
		return models.Insight{}, err
	}
	in.Rule = models.Rule(rule)
	in.Severity = models.Severity(severity)
	in.CreatedAt = fromMillis(created)
	if resolved.Valid {
		t := fromMillis(resolved.Int64)
		in.ResolvedAt = &t
	}
	return in, nil
}

// FindUnresolved returns (nil, nil) when the pair has no open insight.
func (r *InsightSQLite) FindUnresolved(ctx context.Context, zoneID, metricKey string) (*models.Insight, error) {
	in, err := scanInsight(r.db.QueryRowContext(ctx, selectUnresolvedForPairSQL, zoneID, metricKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select open insight %s/%s: %w", zoneID, metricKey, err)
	}
	return &in, nil
}

// Create inserts in unless its pair already has an open insight.
func (r *InsightSQLite) Create(ctx context.Context, in models.Insight) (bool, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, createInsightSQL,
		in.ID, in.ZoneID, in.MetricKey, string(in.Rule), string(in.Severity),
		in.Explanation, in.Confidence, toMillis(nowIfZero(in.CreatedAt)),
		in.ZoneID, in.MetricKey,
	)
	if err != nil {
		return false, fmt.Errorf("insert insight %s/%s: %w", in.ZoneID, in.MetricKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for insight %s/%s: %w", in.ZoneID, in.MetricKey, err)
	}
	return n == 1, nil
}

// ListUnresolved returns open insights joined with their zone and metric.
func (r *InsightSQLite) ListUnresolved(ctx context.Context) ([]models.InsightDetail, error) {
	rows, err := r.db.QueryContext(ctx, selectUnresolvedDetailSQL)
	if err != nil {
		return nil, fmt.Errorf("select open insights: %w", err)
	}
	defer rows.Close()

	var out []models.InsightDetail
	for rows.Next() {
		var (
			d                  models.InsightDetail
			rule, severity     string
			exposure, orient   string
			created, zoneAdded int64
		)
		if err := rows.Scan(
			&d.ID, &d.ZoneID, &d.MetricKey, &rule, &severity, &d.Explanation, &d.Confidence, &created,
			&d.Zone.GardenID, &d.Zone.Name, &d.Zone.PlantType, &exposure, &orient, &zoneAdded,
			&d.Metric.Unit, &d.Metric.IdealMin, &d.Metric.IdealMax, &d.Metric.Description,
		); err != nil {
			return nil, fmt.Errorf("scan open insight: %w", err)
		}
		d.Rule = models.Rule(rule)
		d.Severity = models.Severity(severity)
		d.CreatedAt = fromMillis(created)
		d.Zone.ID = d.ZoneID
		d.Zone.Exposure = models.Exposure(exposure)
		d.Zone.Orientation = models.Orientation(orient)
		d.Zone.CreatedAt = fromMillis(zoneAdded)
		d.Metric.Key = d.MetricKey
		out = append(out, d)
	}
	return out, rows.Err()
}

// Resolve stamps resolvedAt once; resolving an already resolved insight is
// a no-op.
func (r *InsightSQLite) Resolve(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, resolveInsightSQL, toMillis(at), id); err != nil {
		return fmt.Errorf("resolve insight %q: %w", id, err)
	}
	return nil
}

// List returns insights newest first, filtered by status and zone.
func (r *InsightSQLite) List(ctx context.Context, f models.InsightFilter) ([]models.Insight, error) {
	var (
		conds []string
		args  []any
	)

	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case models.InsightStatusActive:
		conds = append(conds, "resolved_at IS NULL")
	case models.InsightStatusResolved:
		conds = append(conds, "resolved_at IS NOT NULL")
	}
	if f.ZoneID != "" {
		conds = append(conds, "zone_id = ?")
		args = append(args, f.ZoneID)
	}

	q := selectInsightColumns
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select insights: %w", err)
	}
	defer rows.Close()

	out := make([]models.Insight, 0, 16)
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
