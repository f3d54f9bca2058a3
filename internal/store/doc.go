// Package store provides durable and in-memory storage for the listing ledger.
//
// Both implementations share one contract:
//   - Append is the only mutation; entries are never updated or removed
//   - Append assigns Seq (global log position), RecordedAt and TransactionRef
//   - RecordedAt never decreases along the log, even if the clock steps back
//   - Version must be exactly last+1 for the entity (1 for a new entity),
//     otherwise Append fails with ErrVersionConflict
//   - ReadAll returns entries in append order (ORDER BY seq ASC)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Since schema version 2 the database itself rejects UPDATE and DELETE on
// ledger_entries through triggers.
//
// Payloads are stored as canonical JSON (see ir.MarshalCanonical), so the
// stored text hashes to the recorded content hash for CREATED entries.
package store
