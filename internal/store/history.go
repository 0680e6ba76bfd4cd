package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// HistoryLog describes one bounded log type (e.g. presence, avatar).
type HistoryLog struct {
	// Type is the log identifier stored with each entry.
	Type string

	// Cap is the maximum number of entries retained per subject.
	Cap int

	// Dedup skips an insert whose value is byte-identical to the most
	// recent stored entry. Used for avatar-style logs where repeated
	// gateway events carry the same content.
	Dedup bool
}

// HistoryEntry is one stored entry of a bounded log.
type HistoryEntry struct {
	SubjectID  string
	LogType    string
	Value      []byte
	RecordedAt time.Time
}

// AppendHistory appends an entry to the subject's bounded log and
// trims the log to its cap, all inside one transaction. There is no
// window in which more than Cap entries are visible to readers.
//
// "Most recent" orders by timestamp descending; entries sharing a
// timestamp are ordered by insertion (the later insert is newer).
//
// Returns true if an entry was stored, false if dedup skipped it.
func (s *Store) AppendHistory(ctx context.Context, subjectID string, log HistoryLog, value []byte, ts time.Time) (bool, error) {
	if log.Cap < 1 {
		return false, &StoreError{
			Code:    ErrCodeConfigInvalid,
			Op:      "append history",
			Message: fmt.Sprintf("log %q has cap %d, must be >= 1", log.Type, log.Cap),
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("append history: begin tx: %w", classify("append history", err))
	}
	defer tx.Rollback() // No-op if committed

	if log.Dedup {
		var latest []byte
		err := tx.QueryRowContext(ctx, `
			SELECT value FROM history_entries
			WHERE subject_id = ? AND log_type = ?
			ORDER BY recorded_at DESC, id DESC
			LIMIT 1
		`, subjectID, log.Type).Scan(&latest)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Empty log, nothing to compare against.
		case err != nil:
			return false, fmt.Errorf("append history: dedup lookup: %w", classify("append history", err))
		case bytes.Equal(latest, value):
			return false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history_entries (subject_id, log_type, value, recorded_at)
		VALUES (?, ?, ?, ?)
	`, subjectID, log.Type, value, ts.UTC().Unix()); err != nil {
		return false, fmt.Errorf("append history: insert: %w", classify("append history", err))
	}

	// Keep the Cap newest entries, delete the rest.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM history_entries
		WHERE subject_id = ? AND log_type = ?
		AND id NOT IN (
			SELECT id FROM history_entries
			WHERE subject_id = ? AND log_type = ?
			ORDER BY recorded_at DESC, id DESC
			LIMIT ?
		)
	`, subjectID, log.Type, subjectID, log.Type, log.Cap); err != nil {
		return false, fmt.Errorf("append history: trim: %w", classify("append history", err))
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("append history: commit: %w", classify("append history", err))
	}

	return true, nil
}

// History returns the subject's stored entries for one log type,
// newest first.
func (s *Store) History(ctx context.Context, subjectID, logType string) ([]HistoryEntry, error) {
	rows, err := s.Query(ctx, `
		SELECT value, recorded_at FROM history_entries
		WHERE subject_id = ? AND log_type = ?
		ORDER BY recorded_at DESC, id DESC
	`, subjectID, logType)
	if err != nil {
		return nil, fmt.Errorf("history: %w", classify("history", err))
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		e := HistoryEntry{SubjectID: subjectID, LogType: logType}
		var recordedAt int64
		if err := rows.Scan(&e.Value, &recordedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.RecordedAt = time.Unix(recordedAt, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", classify("history", err))
	}

	return entries, nil
}
