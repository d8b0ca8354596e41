package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"glanced/internal/registry"
)

// SaveDevices replaces the persisted registry with the given snapshot.
// The whole write happens in one transaction so a crash mid-save never
// leaves a partial registry on disk.
func (db *DB) SaveDevices(devices []registry.Device) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save devices: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM devices`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear devices: %w", err)
	}

	for i := range devices {
		d := &devices[i]

		events, err := json.Marshal(d.CalendarEvents)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal calendar events for %s: %w", d.Token, err)
		}
		email, err := json.Marshal(d.Email)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal email data for %s: %w", d.Token, err)
		}
		var weather []byte
		if d.Weather != nil {
			weather, err = json.Marshal(d.Weather)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("marshal weather for %s: %w", d.Token, err)
			}
		}

		_, err = tx.Exec(`
			INSERT INTO devices (
				token, activity_id, user_id, push_token,
				calendar_events, email_data, weather_data,
				timezone, current_island_type, is_subscribed,
				last_island_type, last_island_shown_at,
				registered_at, last_update, last_push_at, last_sync_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			d.Token, d.ActivityID, nullStr(d.UserID), nullStr(d.PushToken),
			string(events), string(email), nullBytes(weather),
			nullStr(d.Timezone), nullStr(d.CurrentIslandType), boolInt(d.IsSubscribed),
			nullStr(d.LastIslandType), millis(d.LastIslandShownAt),
			d.RegisteredAt.UnixMilli(), millis(d.LastUpdate), millis(d.LastPushAt), millis(d.LastSyncAt),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert device %s: %w", d.Token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save devices: %w", err)
	}
	return nil
}

// LoadDevices returns the persisted registry snapshot, ordered by token.
func (db *DB) LoadDevices() ([]registry.Device, error) {
	rows, err := db.Query(`
		SELECT token, activity_id, user_id, push_token,
		       calendar_events, email_data, weather_data,
		       timezone, current_island_type, is_subscribed,
		       last_island_type, last_island_shown_at,
		       registered_at, last_update, last_push_at, last_sync_at
		FROM devices ORDER BY token
	`)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	defer rows.Close()

	var devices []registry.Device
	for rows.Next() {
		var (
			d                        registry.Device
			userID, pushToken        sql.NullString
			events, email, weather   sql.NullString
			timezone, currentIsland  sql.NullString
			lastIsland               sql.NullString
			subscribed               int
			lastShown, registeredAt  sql.NullInt64
			lastUpdate, lastPush     sql.NullInt64
			lastSync                 sql.NullInt64
		)
		err := rows.Scan(
			&d.Token, &d.ActivityID, &userID, &pushToken,
			&events, &email, &weather,
			&timezone, &currentIsland, &subscribed,
			&lastIsland, &lastShown,
			&registeredAt, &lastUpdate, &lastPush, &lastSync,
		)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}

		d.UserID = userID.String
		d.PushToken = pushToken.String
		d.Timezone = timezone.String
		d.CurrentIslandType = currentIsland.String
		d.IsSubscribed = subscribed != 0
		d.LastIslandType = lastIsland.String

		if events.Valid && events.String != "" {
			if err := json.Unmarshal([]byte(events.String), &d.CalendarEvents); err != nil {
				return nil, fmt.Errorf("unmarshal calendar events for %s: %w", d.Token, err)
			}
		}
		if email.Valid && email.String != "" {
			if err := json.Unmarshal([]byte(email.String), &d.Email); err != nil {
				return nil, fmt.Errorf("unmarshal email data for %s: %w", d.Token, err)
			}
		}
		if weather.Valid && weather.String != "" {
			var w registry.Weather
			if err := json.Unmarshal([]byte(weather.String), &w); err != nil {
				return nil, fmt.Errorf("unmarshal weather for %s: %w", d.Token, err)
			}
			d.Weather = &w
		}

		d.LastIslandShownAt = fromMillis(lastShown)
		if registeredAt.Valid {
			d.RegisteredAt = time.UnixMilli(registeredAt.Int64)
		}
		d.LastUpdate = fromMillis(lastUpdate)
		d.LastPushAt = fromMillis(lastPush)
		d.LastSyncAt = fromMillis(lastSync)

		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}
