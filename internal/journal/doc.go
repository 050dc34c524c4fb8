// Package journal persists store changes to an append-only SQLite log and
// rebuilds stores from it.
//
// The journal is a store collaborator, not part of the store: it subscribes
// to every collection through the public listener API with Force set, so
// writes that stop propagation are still recorded.
//
// # Ordering
//
//   - Every entry carries a seq INTEGER assigned by the journal (logical clock)
//   - Reads and replay use ORDER BY seq ASC, never timestamps
//
// # Idempotency
//
//   - Entry IDs are content-addressed (ir.JournalEntryID)
//   - Appends use ON CONFLICT(id) DO NOTHING
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Items and metadata are stored as RFC 8785 canonical JSON. Opaque host
// handles cannot be serialized and are skipped with a warning.
package journal
