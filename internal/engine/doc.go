// Package engine implements the listing service on top of the ledger.
//
// The engine is the only writer of the ledger. Each mutation projects the
// target listing from its entries, checks access control against that
// projection, and appends one entry. Reads (Get, List, Verify) are pure
// folds over the stored log.
//
// ACCESS CONTROL:
//
//	update     owner, then status LISTED
//	mark sold  owner, then status LISTED, then at least one document
//	delist     admin, then not already DELISTED, then a reason
//
// Checks run in that order so the first failing precondition is the one
// reported.
//
// CONCURRENCY:
//
// Mutations on the same listing are serialized by a per-listing lock. Each
// appended entry claims the next per-listing version, and the store refuses
// a version that is already taken, which covers writers in other processes.
// Reads take no lock; the store guarantees they see whole entries only.
//
// VERIFICATION:
//
// Verify recomputes the content hash of a listing's projected snapshot with
// status put back to LISTED and compares it with the hash recorded by the
// last CREATED or UPDATED entry. AuditLog does the same for every entry in
// the log.
package engine
