package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"garden_insights/internal/models"
)

type GardenSQLite struct {
	db *sql.DB
}

func NewGardenSQLite(db *sql.DB) *GardenSQLite { return &GardenSQLite{db: db} }

const (
	upsertGardenSQL = `
		INSERT INTO gardens (id, name, type, orientation, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			type=excluded.type,
			orientation=excluded.orientation
	`

	selectGardensSQL = `SELECT id, name, type, orientation, created_at FROM gardens ORDER BY created_at, id`
	selectGardenSQL  = `SELECT id, name, type, orientation, created_at FROM gardens WHERE id = ?`
)

// Upsert inserts or updates a garden by id.
func (r *GardenSQLite) Upsert(ctx context.Context, g models.Garden) error {
	_, err := r.db.ExecContext(ctx, upsertGardenSQL,
		g.ID, g.Name, g.Type, string(g.Orientation), toMillis(nowIfZero(g.CreatedAt)))
	if err != nil {
		return fmt.Errorf("upsert garden %q: %w", g.ID, err)
	}
	return nil
}

func scanGarden(s rowScanner) (models.Garden, error) {
	var (
		g       models.Garden
		orient  string
		created int64
	)
	if err := s.Scan(&g.ID, &g.Name, &g.Type, &orient, &created); err != nil {
		return models.Garden{}, err
	}
	g.Orientation = models.Orientation(orient)
	g.CreatedAt = fromMillis(created)
	return g, nil
}

func (r *GardenSQLite) List(ctx context.Context) ([]models.Garden, error) {
	rows, err := r.db.QueryContext(ctx, selectGardensSQL)
	if err != nil {
		return nil, fmt.Errorf("select gardens: %w", err)
	}
	defer rows.Close()

	var out []models.Garden
	for rows.Next() {
		g, err := scanGarden(rows)
		if err != nil {
			return nil, fmt.Errorf("scan garden: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Get returns (nil, nil) when no garden has the id.
func (r *GardenSQLite) Get(ctx context.Context, id string) (*models.Garden, error) {
	g, err := scanGarden(r.db.QueryRowContext(ctx, selectGardenSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select garden %q: %w", id, err)
	}
	return &g, nil
}
