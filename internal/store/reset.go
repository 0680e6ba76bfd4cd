package store

import (
	"context"
	"fmt"
)

// SchemaName identifies the one schema this store owns. Reset refuses
// any other name so a misdirected call cannot wipe unrelated state.
const SchemaName = "tally"

// schemaTables lists every table Reset drops, dependents first so
// foreign keys never block a drop.
var schemaTables = []string{
	"history_entries",
	"fine_counters",
	"medium_counters",
	"total_counters",
	"scopes",
	"subjects",
}

// Reset drops every table in the named schema and recreates it empty.
// This is an explicit administrative operation; nothing in the normal
// runtime path calls it.
func (s *Store) Reset(ctx context.Context, schema string) error {
	if schema != SchemaName {
		return &StoreError{
			Code:    ErrCodeConfigInvalid,
			Op:      "reset",
			Message: fmt.Sprintf("unknown schema %q, this store owns %q", schema, SchemaName),
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: begin tx: %w", classify("reset", err))
	}
	defer tx.Rollback() // No-op if committed

	for _, table := range schemaTables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("reset: drop %s: %w", table, classify("reset", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: commit: %w", classify("reset", err))
	}

	if err := applySchema(s.db); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	return nil
}
