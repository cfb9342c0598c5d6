package sqlite

import (
	"database/sql"
	"fmt"
)

// The schema is bootstrapped at open; statements are idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		password_hash   TEXT NOT NULL,
		birth_date      TEXT NOT NULL,
		weekly_hours    INTEGER NOT NULL,
		flex_balance    TEXT NOT NULL,
		green_threshold TEXT NOT NULL,
		red_threshold   TEXT NOT NULL,
		supervisor_id   TEXT REFERENCES employees(id),
		last_login_day  TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS weekly_hours_history (
		id             TEXT PRIMARY KEY,
		employee_id    TEXT NOT NULL REFERENCES employees(id),
		weekly_hours   INTEGER NOT NULL,
		effective_from TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		UNIQUE (employee_id, effective_from)
	)`,
	`CREATE TABLE IF NOT EXISTS time_stamps (
		id          TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		day         TEXT NOT NULL,
		at          TEXT NOT NULL,
		settled     INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_time_stamps_employee_day
		ON time_stamps (employee_id, day, at)`,
	`CREATE TABLE IF NOT EXISTS absences (
		id          TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		day         TEXT NOT NULL,
		type        TEXT NOT NULL CHECK (type IN ('vacation', 'sick', 'training', 'other')),
		approved    INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		UNIQUE (employee_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id          TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		code        INTEGER NOT NULL,
		day         TEXT NOT NULL,
		message     TEXT NOT NULL,
		popup       INTEGER NOT NULL DEFAULT 0,
		show_at     TEXT,
		created_at  TEXT NOT NULL,
		UNIQUE (employee_id, code, day)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token       TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		expires_at  TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
}

func applySchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
