// Package store provides SQLite-backed storage for tiered event
// counters and bounded history logs.
//
// Three counter tiers share one transactional resource:
//   - fine_counters: one row per (subject, scope, type, counting day)
//   - medium_counters: one row per (subject, scope, type, month)
//   - total_counters: one cumulative row per (subject, scope, type)
//
// Rollups promote fine rows into medium and medium rows into total.
// Each promotion sums the source rows, upsert-adds into the
// destination, and deletes the source inside a single transaction, so
// a re-run over a consumed window finds nothing to move and is a
// no-op. There is never a partially rolled-up state visible to
// readers.
//
// History logs (presence transitions, avatar changes) are trimmed to
// a fixed cap inside the inserting transaction. Among entries with an
// identical timestamp, insertion order decides which is newer.
//
// All counter and history rows are foreign-keyed to subject/scope
// identity rows with ON DELETE CASCADE; deleting an identity removes
// every dependent row.
//
// # Time conventions
//
// The counting day starts at 08:00 UTC, not midnight. Day, month, and
// year buckets are all anchored to that offset, so score buckets stay
// mutually consistent. Counting began at the 2018-01-01 epoch.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce cascade deletes
//   - single writer connection: SQLite serializes writers anyway;
//     one connection avoids SQLITE_BUSY between our own statements
package store
