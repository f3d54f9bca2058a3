// Package harness runs listing ledger scenarios as executable contract tests.
//
// A scenario drives the real engine through a sequence of listing operations
// against a fresh in-memory SQLite ledger, checks each step's outcome and
// then asserts on the final ledger.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	steps:
//	  - action: create
//	    as: farmer-1
//	    fields: { crop: Rice, price: 3000 }
//	    expect:
//	      status: LISTED
//	      version: 1
//	  - action: sell
//	    as: farmer-1
//	    id: LIST-0001
//	    documents: [invoice-17.pdf]
//	    buyer: buyer-42
//	  - action: update
//	    as: farmer-1
//	    id: LIST-0001
//	    fields: { price: 1 }
//	    expect:
//	      error: INVALID_STATE
//	  - action: verify
//	    id: LIST-0001
//	    tamper: { price: 1 }
//	    expect:
//	      verified: false
//	assertions:
//	  - type: entity
//	    id: LIST-0001
//	    status: SOLD
//	  - type: log_kinds
//	    kinds: [CREATED, SOLD]
//
// Steps without an expect clause must succeed. Steps expecting an error pass
// only when the engine rejects them with that LedgerError code.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - entity: Checks a listing's projected status, version, owner, hash and a subset of fields
//   - log_kinds: Checks the kind of every ledger entry in append order
//   - log_count: Checks the number of ledger entries
//   - list: Checks the ids List returns for a filter, newest first
//   - audit_clean: Checks that a full audit of the ledger finds nothing
//
// # Deterministic Testing
//
// The harness uses:
//   - Sequential listing ids (LIST-0001, LIST-0002, ...)
//   - A deterministic clock starting at testutil.Epoch, one second per entry
//   - In-memory SQLite database (isolated per run)
//
// This ensures identical ledgers across runs for golden file comparison;
// see Snapshot and RunWithGolden.
package harness
