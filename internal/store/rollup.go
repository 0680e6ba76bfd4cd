package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Period selects which tier-to-tier rollup to run.
type Period string

const (
	// PeriodMonth promotes fine (daily) rows from the previous
	// completed calendar month into the medium (monthly) tier.
	PeriodMonth Period = "month"

	// PeriodYear promotes medium (monthly) rows from the previous
	// completed calendar year into the all-time total tier. There is
	// no yearly tier; months older than a year go straight into the
	// eternal total.
	PeriodYear Period = "year"
)

// aggregateTimeout bounds one rollup transaction. Expiry aborts the
// transaction; the work is redone at the job's next occurrence.
const aggregateTimeout = 30 * time.Second

// RollupStats reports what one Aggregate call moved.
type RollupStats struct {
	Period      Period    `json:"period"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	// Groups is the number of destination rows written to.
	Groups int64 `json:"groups"`

	// SourceRows is the number of source rows consumed and deleted.
	SourceRows int64 `json:"source_rows"`
}

// Aggregate promotes counters between tiers for the window that ended
// most recently before now.
//
// The sum, upsert-add, and delete run in one transaction: either the
// whole window moves or nothing does. Re-invoking for a window whose
// source rows were already consumed finds an empty group and is a
// no-op, so the operation is idempotent. Concurrent increments are
// excluded by SQLite's writer serialization, so a count can never be
// split across the rollup boundary.
//
// An unknown period is a configuration error, rejected before any
// transaction starts.
func (s *Store) Aggregate(ctx context.Context, period Period, now time.Time) (RollupStats, error) {
	var source, dest, sourceBucket, destBucket string
	var start, end time.Time

	switch period {
	case PeriodMonth:
		source, sourceBucket = "fine_counters", "day_bucket"
		dest, destBucket = "medium_counters", "month_bucket"
		start, end = monthWindow(now)
	case PeriodYear:
		source, sourceBucket = "medium_counters", "month_bucket"
		dest, destBucket = "total_counters", ""
		start, end = yearWindow(now)
	default:
		return RollupStats{}, &StoreError{
			Code:    ErrCodeConfigInvalid,
			Op:      "aggregate",
			Message: fmt.Sprintf("unknown period token %q, want %q or %q", period, PeriodMonth, PeriodYear),
		}
	}

	stats := RollupStats{Period: period, WindowStart: start, WindowEnd: end}

	ctx, cancel := context.WithTimeout(ctx, aggregateTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("aggregate %s: begin tx: %w", period, classify("aggregate", err))
	}
	defer tx.Rollback() // No-op if committed

	// Sum the window's source rows per (subject, scope, type) and
	// upsert-add into the destination tier.
	var upsert string
	if destBucket != "" {
		upsert = fmt.Sprintf(`
			INSERT INTO %[1]s (subject_id, scope_id, counter_type, %[2]s, count)
			SELECT subject_id, scope_id, counter_type, ?, SUM(count)
			FROM %[3]s
			WHERE %[4]s >= ? AND %[4]s < ?
			GROUP BY subject_id, scope_id, counter_type
			ON CONFLICT(subject_id, scope_id, counter_type, %[2]s)
			DO UPDATE SET count = count + excluded.count
		`, dest, destBucket, source, sourceBucket)
	} else {
		upsert = fmt.Sprintf(`
			INSERT INTO %[1]s (subject_id, scope_id, counter_type, count)
			SELECT subject_id, scope_id, counter_type, SUM(count)
			FROM %[2]s
			WHERE %[3]s >= ? AND %[3]s < ?
			GROUP BY subject_id, scope_id, counter_type
			ON CONFLICT(subject_id, scope_id, counter_type)
			DO UPDATE SET count = count + excluded.count
		`, dest, source, sourceBucket)
	}

	var args []any
	if destBucket != "" {
		args = append(args, start.Unix())
	}
	args = append(args, start.Unix(), end.Unix())

	res, err := tx.ExecContext(ctx, upsert, args...)
	if err != nil {
		return stats, fmt.Errorf("aggregate %s: upsert: %w", period, classify("aggregate", err))
	}
	if stats.Groups, err = res.RowsAffected(); err != nil {
		return stats, fmt.Errorf("aggregate %s: rows affected: %w", period, err)
	}

	// Delete the consumed source rows. Running inside the same
	// transaction as the upsert is what makes a retry a no-op instead
	// of a double-count.
	res, err = tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %[1]s WHERE %[2]s >= ? AND %[2]s < ?
	`, source, sourceBucket), start.Unix(), end.Unix())
	if err != nil {
		return stats, fmt.Errorf("aggregate %s: delete: %w", period, classify("aggregate", err))
	}
	if stats.SourceRows, err = res.RowsAffected(); err != nil {
		return stats, fmt.Errorf("aggregate %s: rows affected: %w", period, err)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("aggregate %s: commit: %w", period, classify("aggregate", err))
	}

	slog.Debug("rollup complete",
		"period", period,
		"window_start", start,
		"window_end", end,
		"groups", stats.Groups,
		"source_rows", stats.SourceRows,
	)

	return stats, nil
}
