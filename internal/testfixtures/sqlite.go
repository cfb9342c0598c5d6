package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/example/timeclock/internal/persistence/sqlite"
)

// NewSQLiteHarness opens a temporary SQLite store with the schema
// applied. The store is closed automatically when the test finishes.
func NewSQLiteHarness(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "timeclock.db")
	store, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}
	tb.Cleanup(func() { store.Close() })
	return store
}
