package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a store backed by a temp-dir database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedIdentity registers subject and scope rows so counter writes
// pass their foreign key checks.
func seedIdentity(t *testing.T, s *Store, subjects, scopes []string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range subjects {
		if err := s.EnsureSubject(ctx, id); err != nil {
			t.Fatalf("EnsureSubject(%q) failed: %v", id, err)
		}
	}
	for _, id := range scopes {
		if err := s.EnsureScope(ctx, id); err != nil {
			t.Fatalf("EnsureScope(%q) failed: %v", id, err)
		}
	}
}

// mustIncrement is a fatal-on-error Increment for test setup.
func mustIncrement(t *testing.T, s *Store, subject, scope, counterType string, ts time.Time, delta int64) {
	t.Helper()
	if err := s.Increment(context.Background(), subject, scope, counterType, ts, delta); err != nil {
		t.Fatalf("Increment(%s, %s, %s, %v) failed: %v", subject, scope, counterType, ts, err)
	}
}

// countRows returns the row count of a table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

// sumColumn returns SUM(count) over a whole counter table.
func sumColumn(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	var n int64
	if err := s.db.QueryRow("SELECT COALESCE(SUM(count), 0) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("sum %s failed: %v", table, err)
	}
	return n
}
