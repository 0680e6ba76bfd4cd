package store

import (
	"context"
	"testing"
	"time"
)

// scoreScenario seeds the canonical bucket scenario: events at T-1h,
// T-26h, T-9d and T-40d relative to the query time T (testNoon).
func scoreScenario(t *testing.T, s *Store) {
	t.Helper()
	seedIdentity(t, s, []string{"u1"}, []string{"g1"})

	mustIncrement(t, s, "u1", "g1", "message", testNoon.Add(-1*time.Hour), 1)
	mustIncrement(t, s, "u1", "g1", "message", testNoon.Add(-26*time.Hour), 1)
	mustIncrement(t, s, "u1", "g1", "message", testNoon.Add(-9*24*time.Hour), 1)
	mustIncrement(t, s, "u1", "g1", "message", testNoon.Add(-40*24*time.Hour), 1)
}

func TestScore_BucketScenario(t *testing.T) {
	s := createTestStore(t)
	scoreScenario(t, s)

	report, err := s.Score(context.Background(), "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if report.Today != 1 {
		t.Errorf("today = %d, want 1", report.Today)
	}
	if report.Yesterday != 1 {
		t.Errorf("yesterday = %d, want 1", report.Yesterday)
	}
	if report.ThisWeek < 2 {
		t.Errorf("this_week = %d, want >= 2", report.ThisWeek)
	}
	if report.LastWeek != 1 {
		t.Errorf("last_week = %d, want 1 (the T-9d event)", report.LastWeek)
	}
	if report.LastMonth != 1 {
		t.Errorf("last_month = %d, want 1 (the T-40d event)", report.LastMonth)
	}
	if report.ThisYear != 4 {
		t.Errorf("this_year = %d, want 4", report.ThisYear)
	}
	if report.LastYear != 0 {
		t.Errorf("last_year = %d, want 0", report.LastYear)
	}
	if report.AllTime != 4 {
		t.Errorf("all_time = %d, want 4", report.AllTime)
	}
}

func TestScore_ConsistentAcrossMonthlyRollup(t *testing.T) {
	s := createTestStore(t)
	scoreScenario(t, s)
	ctx := context.Background()

	before, err := s.Score(ctx, "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() before rollup failed: %v", err)
	}

	// Roll February's fine rows into the medium tier. The T-40d event
	// moves tiers but must not move buckets.
	if _, err := s.Aggregate(ctx, PeriodMonth, testNoon); err != nil {
		t.Fatalf("Aggregate(month) failed: %v", err)
	}

	after, err := s.Score(ctx, "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() after rollup failed: %v", err)
	}

	for _, name := range BucketNames {
		if before.Bucket(name) != after.Bucket(name) {
			t.Errorf("bucket %s changed across rollup: %d -> %d",
				name, before.Bucket(name), after.Bucket(name))
		}
	}

	// The moved event is now served from the medium tier.
	if got := countRows(t, s, "medium_counters"); got != 1 {
		t.Errorf("medium rows = %d, want 1", got)
	}
	if after.LastMonth != 1 {
		t.Errorf("last_month after rollup = %d, want 1", after.LastMonth)
	}
}

func TestScore_AllTimeSurvivesYearlyRollup(t *testing.T) {
	s := createTestStore(t)
	seedIdentity(t, s, []string{"u1"}, []string{"g1"})
	ctx := context.Background()

	// A 2023 month already rolled to the medium tier.
	if _, err := s.db.Exec(`
		INSERT INTO medium_counters (subject_id, scope_id, counter_type, month_bucket, count)
		VALUES ('u1', 'g1', 'message', ?, 25)
	`, time.Date(2023, time.June, 1, 8, 0, 0, 0, time.UTC).Unix()); err != nil {
		t.Fatalf("seed medium row failed: %v", err)
	}
	mustIncrement(t, s, "u1", "g1", "message", testNoon, 5)

	before, err := s.Score(ctx, "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if before.LastYear != 25 {
		t.Errorf("last_year before yearly rollup = %d, want 25", before.LastYear)
	}
	if before.AllTime != 30 {
		t.Errorf("all_time before yearly rollup = %d, want 30", before.AllTime)
	}

	if _, err := s.Aggregate(ctx, PeriodYear, testNoon); err != nil {
		t.Fatalf("Aggregate(year) failed: %v", err)
	}

	after, err := s.Score(ctx, "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() after yearly rollup failed: %v", err)
	}
	// The year's mass is now only visible in all_time; last_year
	// drains because no yearly tier exists.
	if after.AllTime != 30 {
		t.Errorf("all_time after yearly rollup = %d, want 30", after.AllTime)
	}
	if after.LastYear != 0 {
		t.Errorf("last_year after yearly rollup = %d, want 0", after.LastYear)
	}
}

func TestScore_SumsAcrossCounterTypes(t *testing.T) {
	s := createTestStore(t)
	seedIdentity(t, s, []string{"u1"}, []string{"g1"})

	mustIncrement(t, s, "u1", "g1", "message", testNoon, 2)
	mustIncrement(t, s, "u1", "g1", "presence", testNoon, 3)

	report, err := s.Score(context.Background(), "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if report.Today != 5 {
		t.Errorf("today = %d, want 5 (summed across types)", report.Today)
	}
}

func TestScore_KeysAreIndependent(t *testing.T) {
	s := createTestStore(t)
	seedIdentity(t, s, []string{"u1", "u2"}, []string{"g1", "g2"})

	mustIncrement(t, s, "u1", "g1", "message", testNoon, 2)
	mustIncrement(t, s, "u1", "g2", "message", testNoon, 7)
	mustIncrement(t, s, "u2", "g1", "message", testNoon, 11)

	report, err := s.Score(context.Background(), "u1", "g1", testNoon)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if report.Today != 2 {
		t.Errorf("today = %d, want 2 (other keys excluded)", report.Today)
	}
}
