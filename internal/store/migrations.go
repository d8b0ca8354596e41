package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "devices: registered sessions with synced context and rotation bookkeeping",
		SQL: `
CREATE TABLE devices (
    id              INTEGER PRIMARY KEY,
    token           TEXT NOT NULL UNIQUE,
    activity_id     TEXT NOT NULL,
    user_id         TEXT,
    push_token      TEXT,

    -- Synced context, stored as JSON blobs
    calendar_events TEXT,
    email_data      TEXT,
    weather_data    TEXT,

    timezone            TEXT,
    current_island_type TEXT,
    is_subscribed       INTEGER NOT NULL DEFAULT 0,

    -- Rotation bookkeeping
    last_island_type     TEXT,
    last_island_shown_at INTEGER,

    registered_at   INTEGER NOT NULL,
    last_update     INTEGER,
    last_push_at    INTEGER,
    last_sync_at    INTEGER
);

CREATE INDEX idx_devices_user ON devices(user_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
