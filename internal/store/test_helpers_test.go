package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/testutil"
)

// createTestStore creates a new file-backed store with a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry with a small listing payload.
func createTestEntry(kind ir.Kind, entityID string, version int64) ir.LedgerEntry {
	payload := ir.MustPayload(map[string]any{
		"crop":  "Rice",
		"price": 3000,
	})
	return ir.LedgerEntry{
		Kind:        kind,
		EntityID:    entityID,
		Version:     version,
		Payload:     payload,
		ContentHash: ir.MustContentHash(payload),
		Actor:       "farmer-1",
	}
}

// ledgerFactories lets contract tests run against both implementations.
func ledgerFactories() map[string]func(t *testing.T) Ledger {
	return map[string]func(t *testing.T) Ledger{
		"sqlite": func(t *testing.T) Ledger { return createTestStore(t) },
		"memory": func(t *testing.T) Ledger {
			return NewMemory(WithClock(testutil.NewDeterministicClock().Now))
		},
	}
}
