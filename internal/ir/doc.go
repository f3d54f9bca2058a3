// Package ir provides the canonical data model for the listing ledger.
//
// This package contains the ledger's value types (Payload, LedgerEntry,
// Entity) together with the canonical serialization and hashing used for
// content verification. All other internal packages import ir; ir imports
// nothing internal.
//
// Key constraints:
//   - Only top-level payload keys are sorted during canonicalization; nested
//     objects keep the key order they were supplied with
//   - Content hashes are plain SHA-256 over canonical bytes (no domain prefix)
//     so they stay comparable with hashes recorded by earlier writers
//   - Payload values are held as raw JSON, never decoded into Go maps
//   - JSON tags use camelCase to match the recorded wire format
package ir
