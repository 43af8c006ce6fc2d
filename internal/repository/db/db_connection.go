package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// pragmas are applied in order on every open. The pool is capped at one
// connection, so they hold for every statement.
var pragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA foreign_keys = ON;",
	"PRAGMA busy_timeout = 5000;",
}

// InitDB opens (or creates) the SQLite file at path and applies the schema.
// Use ":memory:" for a throwaway database.
func InitDB(path string) (*sql.DB, error) {
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// single writer; also keeps an in-memory DB alive across calls
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if err := ensureSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

const sqliteDriverName = "sqlite"

const schemaGardens = `
CREATE TABLE IF NOT EXISTS gardens (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    orientation TEXT NOT NULL CHECK (orientation IN ('interior', 'north', 'south', 'east', 'west')),
    created_at INTEGER NOT NULL
);
`

const schemaZones = `
CREATE TABLE IF NOT EXISTS zones (
    id TEXT PRIMARY KEY,
    garden_id TEXT NOT NULL REFERENCES gardens(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    plant_type TEXT NOT NULL,
    exposure TEXT NOT NULL CHECK (exposure IN ('low', 'medium', 'high')),
    created_at INTEGER NOT NULL
);
`

const schemaMetrics = `
CREATE TABLE IF NOT EXISTS metrics (
    key TEXT PRIMARY KEY,
    unit TEXT NOT NULL,
    ideal_min REAL NOT NULL,
    ideal_max REAL NOT NULL,
    description TEXT NOT NULL
);
`

// ts is unix milliseconds (UTC).
const schemaReadings = `
CREATE TABLE IF NOT EXISTS readings (
    id TEXT PRIMARY KEY,
    zone_id TEXT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
    metric_key TEXT NOT NULL REFERENCES metrics(key) ON DELETE CASCADE,
    value REAL NOT NULL,
    ts INTEGER NOT NULL,
    source TEXT NOT NULL CHECK (source IN ('simulated', 'external'))
);
CREATE INDEX IF NOT EXISTS idx_readings_pair_ts ON readings(zone_id, metric_key, ts);
`

// At most one unresolved insight per (zone_id, metric_key).
const schemaInsights = `
CREATE TABLE IF NOT EXISTS insights (
    id TEXT PRIMARY KEY,
    zone_id TEXT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
    metric_key TEXT NOT NULL REFERENCES metrics(key) ON DELETE CASCADE,
    rule TEXT NOT NULL,
    severity TEXT NOT NULL CHECK (severity IN ('info', 'warning', 'critical')),
    explanation TEXT NOT NULL,
    confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
    created_at INTEGER NOT NULL,
    resolved_at INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_insights_open_pair
    ON insights(zone_id, metric_key) WHERE resolved_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_insights_created ON insights(created_at);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for i, stmt := range []string{
		schemaGardens,
		schemaZones,
		schemaMetrics,
		schemaReadings,
		schemaInsights,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
