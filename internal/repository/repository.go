package repository

import (
	"context"
	"database/sql"
	"time"

	"garden_insights/internal/models"
)

type GardenRepo interface {
	Upsert(ctx context.Context, g models.Garden) error
	List(ctx context.Context) ([]models.Garden, error)
	Get(ctx context.Context, id string) (*models.Garden, error)
}

// ZoneRepo returns zones with the owning garden's orientation filled in.
type ZoneRepo interface {
	Upsert(ctx context.Context, z models.Zone) error
	List(ctx context.Context) ([]models.Zone, error)
	Get(ctx context.Context, id string) (*models.Zone, error)
}

type MetricRepo interface {
	Upsert(ctx context.Context, m models.Metric) error
	List(ctx context.Context) ([]models.Metric, error)
	Get(ctx context.Context, key string) (*models.Metric, error)
}

// ReadingRepo is append-only. Since returns readings ascending by timestamp,
// Recent returns at most limit readings descending by timestamp.
type ReadingRepo interface {
	Append(ctx context.Context, readings []models.Reading) error
	Latest(ctx context.Context, zoneID, metricKey string) (*models.Reading, error)
	Since(ctx context.Context, zoneID, metricKey string, since time.Time) ([]models.Reading, error)
	CountSince(ctx context.Context, zoneID, metricKey string, since time.Time) (int, error)
	Recent(ctx context.Context, zoneID, metricKey string, since time.Time, limit int) ([]models.Reading, error)
}

// InsightRepo stores insights. Create is a conditional insert: it reports
// false without writing when the pair already has an unresolved insight.
type InsightRepo interface {
	FindUnresolved(ctx context.Context, zoneID, metricKey string) (*models.Insight, error)
	Create(ctx context.Context, in models.Insight) (bool, error)
	ListUnresolved(ctx context.Context) ([]models.InsightDetail, error)
	Resolve(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, f models.InsightFilter) ([]models.Insight, error)
}

// Maintenance wipes stored data for reseeding.
type Maintenance interface {
	Reset(ctx context.Context) error
}

type Repository struct {
	Gardens     GardenRepo
	Zones       ZoneRepo
	Metrics     MetricRepo
	Readings    ReadingRepo
	Insights    InsightRepo
	Maintenance Maintenance
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Gardens:     NewGardenSQLite(db),
		Zones:       NewZoneSQLite(db),
		Metrics:     NewMetricSQLite(db),
		Readings:    NewReadingSQLite(db),
		Insights:    NewInsightSQLite(db),
		Maintenance: NewMaintenanceSQLite(db),
	}
}

// Timestamps are stored as UTC unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// nowIfZero returns t in UTC, or the current time when t is zero.
func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
