package store

import (
	"context"
	"fmt"
	"time"
)

// Increment adds delta to the fine counter for (subject, scope, type)
// in the counting day containing ts, creating the row on first use.
//
// The read-modify-write is a single upsert statement, so concurrent
// increments to the same key never lose updates. The subject and
// scope identity rows must already exist; a missing identity surfaces
// as an integrity violation.
func (s *Store) Increment(ctx context.Context, subjectID, scopeID, counterType string, ts time.Time, delta int64) error {
	if delta <= 0 {
		return &StoreError{
			Code:    ErrCodeConfigInvalid,
			Op:      "increment",
			Message: fmt.Sprintf("delta must be positive, got %d", delta),
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fine_counters (subject_id, scope_id, counter_type, day_bucket, count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, scope_id, counter_type, day_bucket)
		DO UPDATE SET count = count + excluded.count
	`,
		subjectID,
		scopeID,
		counterType,
		DayBucket(ts).Unix(),
		delta,
	)
	if err != nil {
		return fmt.Errorf("increment: %w", classify("increment", err))
	}

	return nil
}

// FineCount returns the fine counter value for a single key, or zero
// if the row does not exist.
func (s *Store) FineCount(ctx context.Context, subjectID, scopeID, counterType string, ts time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM fine_counters
		WHERE subject_id = ? AND scope_id = ? AND counter_type = ? AND day_bucket = ?
	`,
		subjectID,
		scopeID,
		counterType,
		DayBucket(ts).Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("fine count: %w", classify("fine count", err))
	}
	return count, nil
}
