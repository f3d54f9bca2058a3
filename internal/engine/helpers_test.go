package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/store"
	"github.com/roach88/marketledger/internal/testutil"
)

var (
	farmer = Caller{ID: "farmer-1"}
	other  = Caller{ID: "farmer-2"}
	admin  = Caller{ID: "admin-1", Admin: true}
)

type testEnv struct {
	engine *Engine
	ledger store.Ledger
	logs   *bytes.Buffer
}

func newTestEnv(t *testing.T, ledger store.Ledger, opts ...EngineOption) *testEnv {
	t.Helper()
	logs := &bytes.Buffer{}
	all := append([]EngineOption{
		WithIDGenerator(testutil.NewSequentialIDGenerator("LIST")),
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
	}, opts...)
	return &testEnv{engine: New(ledger, all...), ledger: ledger, logs: logs}
}

func newMemoryEnv(t *testing.T, opts ...EngineOption) *testEnv {
	t.Helper()
	return newTestEnv(t, store.NewMemory(store.WithClock(testutil.NewDeterministicClock().Now)), opts...)
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir+"/test.db", store.WithClock(testutil.NewDeterministicClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rice() ir.Payload {
	return ir.MustPayload(map[string]any{"crop": "Rice", "price": 3000})
}

func (env *testEnv) logLen(t *testing.T) int {
	t.Helper()
	entries, err := env.ledger.ReadAll(context.Background())
	require.NoError(t, err)
	return len(entries)
}

func (env *testEnv) mustCreate(t *testing.T) *ir.Entity {
	t.Helper()
	ent, err := env.engine.Create(context.Background(), farmer, CreateRequest{Fields: rice()})
	require.NoError(t, err)
	return ent
}

// failingLedger fails every call after the first n appends.
type failingLedger struct {
	store.Ledger
	appendsLeft int
	failReads   bool
}

var errDiskFull = errors.New("disk full")

func (f *failingLedger) Append(ctx context.Context, e ir.LedgerEntry) (ir.LedgerEntry, error) {
	if f.appendsLeft <= 0 {
		return ir.LedgerEntry{}, errDiskFull
	}
	f.appendsLeft--
	return f.Ledger.Append(ctx, e)
}

func (f *failingLedger) ReadAll(ctx context.Context) ([]ir.LedgerEntry, error) {
	if f.failReads {
		return nil, errDiskFull
	}
	return f.Ledger.ReadAll(ctx)
}

func (f *failingLedger) ReadEntity(ctx context.Context, id string) ([]ir.LedgerEntry, error) {
	if f.failReads {
		return nil, errDiskFull
	}
	return f.Ledger.ReadEntity(ctx, id)
}

// stubValidator rejects payloads containing a "bad" key.
type stubValidator struct {
	listings, updates int
}

var errBadField = errors.New("bad field")

func (v *stubValidator) ValidateListing(p ir.Payload) error {
	v.listings++
	if p.Has("bad") {
		return errBadField
	}
	return nil
}

func (v *stubValidator) ValidateUpdate(p ir.Payload) error {
	v.updates++
	if p.Has("bad") {
		return errBadField
	}
	return nil
}
