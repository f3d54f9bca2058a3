// Package projection derives current listing state from the ledger.
//
// A projection is an ordered fold over ledger entries. It holds no state of
// its own between calls: every read re-folds the log, so there is no cache
// to invalidate and replaying the same entries always yields the same view.
//
// Fold rules:
//   - CREATED starts an entity in status LISTED with currentHash = contentHash
//   - UPDATED merges payload fields shallowly (identity fields excluded) and
//     moves currentHash forward
//   - SOLD closes a LISTED entity and attaches sale metadata; currentHash is
//     left alone
//   - DELISTED closes any entity that is not already delisted
//
// Entries that cannot apply (unknown entity, terminal entity, duplicate
// CREATED) are skipped and logged at WARN so operators can find them.
package projection
