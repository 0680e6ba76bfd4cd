package store

import (
	"context"
	"fmt"
)

// EnsureSubject creates the subject identity row if it does not exist.
// Idempotent.
func (s *Store) EnsureSubject(ctx context.Context, subjectID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id) VALUES (?) ON CONFLICT(id) DO NOTHING`,
		subjectID,
	)
	if err != nil {
		return fmt.Errorf("ensure subject: %w", classify("ensure subject", err))
	}
	return nil
}

// EnsureScope creates the scope identity row if it does not exist.
// Idempotent.
func (s *Store) EnsureScope(ctx context.Context, scopeID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scopes (id) VALUES (?) ON CONFLICT(id) DO NOTHING`,
		scopeID,
	)
	if err != nil {
		return fmt.Errorf("ensure scope: %w", classify("ensure scope", err))
	}
	return nil
}

// DeleteSubject removes a subject identity. Counters and history
// entries referencing it are removed by cascade.
func (s *Store) DeleteSubject(ctx context.Context, subjectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, subjectID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", classify("delete subject", err))
	}
	return nil
}

// DeleteScope removes a scope identity. Counters referencing it are
// removed by cascade.
func (s *Store) DeleteScope(ctx context.Context, scopeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scopes WHERE id = ?`, scopeID)
	if err != nil {
		return fmt.Errorf("delete scope: %w", classify("delete scope", err))
	}
	return nil
}
