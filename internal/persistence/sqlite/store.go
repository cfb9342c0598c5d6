// Package sqlite implements the persistence interfaces on SQLite using
// the cgo-free modernc.org driver. Days are stored as "YYYY-MM-DD"
// text, instants as RFC3339 text and decimal hours as their canonical
// string form.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/timeclock/internal/persistence"
)

const dayFormat = "2006-01-02"

// Store implements persistence.Store. A Store either wraps the shared
// *sql.DB or, inside WithTransaction, a single *sql.Tx.
type Store struct {
	db *sql.DB
	q  querier
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (or creates) the database at dsn, applies pragmas and
// bootstraps the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The driver serializes access per connection; a single connection
	// avoids table-lock errors under concurrent requests.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, q: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Employees returns the employee repository bound to this store.
func (s *Store) Employees() persistence.EmployeeRepository { return &employeeRepository{q: s.q} }

// Stamps returns the stamp repository bound to this store.
func (s *Store) Stamps() persistence.StampRepository { return &stampRepository{q: s.q} }

// Absences returns the absence repository bound to this store.
func (s *Store) Absences() persistence.AbsenceRepository { return &absenceRepository{q: s.q} }

// Notifications returns the notification repository bound to this store.
func (s *Store) Notifications() persistence.NotificationRepository {
	return &notificationRepository{q: s.q}
}

// HoursHistory returns the weekly-hours repository bound to this store.
func (s *Store) HoursHistory() persistence.HoursHistoryRepository {
	return &hoursHistoryRepository{q: s.q}
}

// Sessions returns the session repository bound to this store.
func (s *Store) Sessions() persistence.SessionRepository { return &sessionRepository{q: s.q} }

// WithTransaction executes fn against a transactional store. The
// transaction is rolled back when fn returns an error or panics,
// committed otherwise. Calls on an already transactional store reuse
// the open transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(persistence.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError maps driver errors onto the persistence sentinels. The
// driver exposes constraint failures only through the error text.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func formatDay(day time.Time) string {
	return day.UTC().Format(dayFormat)
}

func parseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(dayFormat, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse day %q: %w", value, err)
	}
	return day, nil
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseInstant(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
