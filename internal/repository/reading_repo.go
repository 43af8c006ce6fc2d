package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"garden_insights/internal/models"

	"github.com/google/uuid"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

const (
	insertReadingSQL = `INSERT INTO readings (id, zone_id, metric_key, value, ts, source) VALUES (?, ?, ?, ?, ?, ?)`

	selectReadingColumns = `SELECT id, zone_id, metric_key, value, ts, source FROM readings`

	selectLatestReadingSQL  = selectReadingColumns + ` WHERE zone_id = ? AND metric_key = ? ORDER BY ts DESC LIMIT 1`
	selectReadingsSinceSQL  = selectReadingColumns + ` WHERE zone_id = ? AND metric_key = ? AND ts >= ? ORDER BY ts ASC`
	selectRecentReadingsSQL = selectReadingColumns + ` WHERE zone_id = ? AND metric_key = ? AND ts >= ? ORDER BY ts DESC LIMIT ?`
	countReadingsSinceSQL   = `SELECT COUNT(*) FROM readings WHERE zone_id = ? AND metric_key = ? AND ts >= ?`
)

// Append bulk-inserts readings in one transaction. Missing ids and
// timestamps are filled in; an empty source defaults to simulated.
func (r *ReadingSQLite) Append(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin readings transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		return fmt.Errorf("prepare reading insert: %w", err)
	}
	defer stmt.Close()

	for _, rd := range readings {
		if rd.ID == "" {
			rd.ID = uuid.NewString()
		}
		if rd.Source == "" {
			rd.Source = models.SourceSimulated
		}
		if _, err := stmt.ExecContext(ctx,
			rd.ID, rd.ZoneID, rd.MetricKey, rd.Value, toMillis(nowIfZero(rd.Timestamp)), string(rd.Source),
		); err != nil {
			return fmt.Errorf("insert reading %s/%s: %w", rd.ZoneID, rd.MetricKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit readings transaction: %w", err)
	}
	return nil
}

func scanReading(s rowScanner) (models.Reading, error) {
	var (
		rd     models.Reading
		ts     int64
		source string
	)
	if err := s.Scan(&rd.ID, &rd.ZoneID, &rd.MetricKey, &rd.Value, &ts, &source); err != nil {
		return models.Reading{}, err
	}
	rd.Timestamp = fromMillis(ts)
	rd.Source = models.ReadingSource(source)
	return rd, nil
}

// Latest returns (nil, nil) when the pair has no readings.
func (r *ReadingSQLite) Latest(ctx context.Context, zoneID, metricKey string) (*models.Reading, error) {
	rd, err := scanReading(r.db.QueryRowContext(ctx, selectLatestReadingSQL, zoneID, metricKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest reading %s/%s: %w", zoneID, metricKey, err)
	}
	return &rd, nil
}

func (r *ReadingSQLite) Since(ctx context.Context, zoneID, metricKey string, since time.Time) ([]models.Reading, error) {
	return r.query(ctx, selectReadingsSinceSQL, zoneID, metricKey, toMillis(since))
}

func (r *ReadingSQLite) Recent(ctx context.Context, zoneID, metricKey string, since time.Time, limit int) ([]models.Reading, error) {
	return r.query(ctx, selectRecentReadingsSQL, zoneID, metricKey, toMillis(since), limit)
}

func (r *ReadingSQLite) CountSince(ctx context.Context, zoneID, metricKey string, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countReadingsSinceSQL, zoneID, metricKey, toMillis(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings %s/%s: %w", zoneID, metricKey, err)
	}
	return n, nil
}

func (r *ReadingSQLite) query(ctx context.Context, q string, args ...any) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Reading, 0, 64)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
