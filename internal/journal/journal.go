// Package journal archives clipboard samples and written waypoints in a
// local SQLite database, so history survives restarts beyond the bounded
// in-memory lists.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/history"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Journal is an append-only archive. Safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS samples (
		  id          TEXT PRIMARY KEY,
		  text        TEXT NOT NULL,
		  rule        TEXT,
		  x           INTEGER,
		  y           INTEGER,
		  z           INTEGER,
		  captured_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_samples_captured
		ON samples(captured_at DESC);

		CREATE TABLE IF NOT EXISTS waypoints (
		  id         TEXT PRIMARY KEY,
		  name       TEXT NOT NULL,
		  line       TEXT NOT NULL,
		  path       TEXT NOT NULL,
		  x          INTEGER NOT NULL,
		  y          INTEGER NOT NULL,
		  z          INTEGER NOT NULL,
		  written_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_waypoints_written
		ON waypoints(written_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	return nil
}

// AddSample archives one clipboard sample.
func (j *Journal) AddSample(ctx context.Context, s history.Sample) error {
	var rule, x, y, z any
	if s.Coords != nil {
		rule, x, y, z = s.Rule, s.Coords.X, s.Coords.Y, s.Coords.Z
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO samples (id, text, rule, x, y, z, captured_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Text, rule, x, y, z, s.CapturedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to archive sample: %w", err)
	}
	return nil
}

// AddRecord archives one written waypoint.
func (j *Journal) AddRecord(ctx context.Context, r history.Record) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO waypoints (id, name, line, path, x, y, z, written_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Line, r.Path, r.Coords.X, r.Coords.Y, r.Coords.Z, r.WrittenAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to archive waypoint: %w", err)
	}
	return nil
}

// RecentRecords returns up to limit archived waypoints, most recent first.
func (j *Journal) RecentRecords(ctx context.Context, limit int) ([]history.Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, name, line, path, x, y, z, written_at FROM waypoints
		 ORDER BY written_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query waypoints: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		var r history.Record
		var at int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Line, &r.Path, &r.Coords.X, &r.Coords.Y, &r.Coords.Z, &at); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		r.WrittenAt = time.Unix(0, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentSamples returns up to limit archived samples, most recent first.
func (j *Journal) RecentSamples(ctx context.Context, limit int) ([]history.Sample, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, text, rule, x, y, z, captured_at FROM samples
		 ORDER BY captured_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []history.Sample
	for rows.Next() {
		var s history.Sample
		var rule sql.NullString
		var x, y, z sql.NullInt64
		var at int64
		if err := rows.Scan(&s.ID, &s.Text, &rule, &x, &y, &z, &at); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if x.Valid && y.Valid && z.Valid {
			s.Coords = &coords.Triple{X: int(x.Int64), Y: int(y.Int64), Z: int(z.Int64)}
			s.Rule = rule.String
		}
		s.CapturedAt = time.Unix(0, at)
		out = append(out, s)
	}
	return out, rows.Err()
}
