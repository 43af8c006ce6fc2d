package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"garden_insights/internal/models"
)

type ZoneSQLite struct {
	db *sql.DB
}

func NewZoneSQLite(db *sql.DB) *ZoneSQLite { return &ZoneSQLite{db: db} }

var _ ZoneRepo = (*ZoneSQLite)(nil)

const (
	upsertZoneSQL = `
		INSERT INTO zones (id, garden_id, name, plant_type, exposure, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			garden_id=excluded.garden_id,
			name=excluded.name,
			plant_type=excluded.plant_type,
			exposure=excluded.exposure
	`

	selectZoneColumns = `
		SELECT z.id, z.garden_id, z.name, z.plant_type, z.exposure, g.orientation, z.created_at
		FROM zones z JOIN gardens g ON g.id = z.garden_id`

	selectZonesSQL    = selectZoneColumns + ` ORDER BY z.created_at, z.id`
	selectZoneByIDSQL = selectZoneColumns + ` WHERE z.id = ?`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(s rowScanner) (models.Zone, error) {
	var (
		z        models.Zone
		exposure string
		orient   string
		created  int64
	)
	if err := s.Scan(&z.ID, &z.GardenID, &z.Name, &z.PlantType, &exposure, &orient, &created); err != nil {
		return models.Zone{}, err
	}
	z.Exposure = models.Exposure(exposure)
	z.Orientation = models.Orientation(orient)
	z.CreatedAt = fromMillis(created)
	return z, nil
}

// Upsert inserts or updates a zone. Orientation is owned by the garden and
// is not written here.
func (r *ZoneSQLite) Upsert(ctx context.Context, z models.Zone) error {
	_, err := r.db.ExecContext(ctx, upsertZoneSQL,
		z.ID, z.GardenID, z.Name, z.PlantType, string(z.Exposure), toMillis(nowIfZero(z.CreatedAt)))
	if err != nil {
		return fmt.Errorf("upsert zone %q: %w", z.ID, err)
	}
	return nil
}

func (r *ZoneSQLite) List(ctx context.Context) ([]models.Zone, error) {
	rows, err := r.db.QueryContext(ctx, selectZonesSQL)
	if err != nil {
		return nil, fmt.Errorf("select zones: %w", err)
	}
	defer rows.Close()

	var out []models.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// Get returns (nil, nil) when the zone does not exist.
func (r *ZoneSQLite) Get(ctx context.Context, id string) (*models.Zone, error) {
	z, err := scanZone(r.db.QueryRowContext(ctx, selectZoneByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select zone %q: %w", id, err)
	}
	return &z, nil
}
