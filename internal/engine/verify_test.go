package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/store"
)

func TestVerify_NotFound(t *testing.T) {
	env := newMemoryEnv(t)

	result, err := env.engine.Verify(context.Background(), "LIST-404")
	assert.True(t, IsNotFound(err))
	assert.False(t, result.Found)
	assert.False(t, result.Verified)
	assert.Equal(t, "LIST-404", result.EntityID)
}

func TestVerifyProjected_TamperDetection(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	ent := env.mustCreate(t)

	tests := []struct {
		name   string
		tamper func(e *ir.Entity)
	}{
		{"price changed", func(e *ir.Entity) { e.Fields["price"] = json.RawMessage(`1`) }},
		{"field added", func(e *ir.Entity) { e.Fields["organic"] = json.RawMessage(`true`) }},
		{"field removed", func(e *ir.Entity) { delete(e.Fields, "crop") }},
		{"owner rewritten", func(e *ir.Entity) { e.Fields["ownerId"] = json.RawMessage(`"mallory"`) }},
		{"hash rewritten", func(e *ir.Entity) { e.CurrentHash = ir.Digest([]byte("x")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projected, err := env.engine.Get(ctx, ent.ID)
			require.NoError(t, err)

			clean, err := VerifyProjected(projected)
			require.NoError(t, err)
			require.True(t, clean.Verified)

			tt.tamper(projected)
			result, err := VerifyProjected(projected)
			require.NoError(t, err, "a mismatch is not an error")
			assert.False(t, result.Verified)
			assert.NotEmpty(t, result.ComputedHash)
			assert.NotEmpty(t, result.StoredHash)
			assert.NotEqual(t, result.ComputedHash, result.StoredHash)
		})
	}
}

func TestVerifyProjected_StatusIsReset(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	ent := env.mustCreate(t)

	for _, status := range []ir.Status{ir.StatusSold, ir.StatusDelisted} {
		projected, err := env.engine.Get(ctx, ent.ID)
		require.NoError(t, err)
		projected.Status = status
		require.NoError(t, projected.Fields.Set("status", string(status)))

		result, err := VerifyProjected(projected)
		require.NoError(t, err)
		assert.True(t, result.Verified, status)
	}
}

func TestVerifyProjected_BadField(t *testing.T) {
	ent := &ir.Entity{ID: "LIST-1", Fields: ir.Payload{"x": json.RawMessage(`{`)}}
	result, err := VerifyProjected(ent)
	assert.True(t, IsInvalidPayload(err))
	assert.True(t, result.Found)
	assert.False(t, result.Verified)
}

func TestAuditLog_Clean(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t)
	b := env.mustCreate(t)

	_, err := env.engine.Update(ctx, farmer, UpdateRequest{ID: a.ID, Fields: ir.MustPayload(map[string]any{"price": 3500})})
	require.NoError(t, err)
	_, err = env.engine.MarkSold(ctx, farmer, SaleRequest{ID: a.ID, Documents: []string{"doc"}})
	require.NoError(t, err)
	_, err = env.engine.Delist(ctx, admin, DelistRequest{ID: b.ID, Reason: "spam"})
	require.NoError(t, err)

	report, err := env.engine.AuditLog(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "findings: %+v", report.Findings)
	assert.Equal(t, 5, report.Entries)
	assert.Equal(t, 2, report.Entities)
}

func TestAuditLog_DetectsTamperedEntries(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewMemory()
	env := newTestEnv(t, ledger)
	ent := env.mustCreate(t)

	// A writer that bypassed the engine: payload and hash disagree.
	forged := ir.MustPayload(map[string]any{"crop": "Rice", "price": 1, "id": ent.ID, "ownerId": "farmer-1", "status": "LISTED"})
	_, err := ledger.Append(ctx, ir.LedgerEntry{
		Kind: ir.KindUpdated, EntityID: ent.ID, Version: 2,
		Payload: forged, ContentHash: ent.CurrentHash,
	})
	require.NoError(t, err)

	// A legacy-style delta update: payload hash is right, snapshot is not.
	delta := ir.MustPayload(map[string]any{"price": 2})
	_, err = ledger.Append(ctx, ir.LedgerEntry{
		Kind: ir.KindUpdated, EntityID: ent.ID, Version: 3,
		Payload: delta, ContentHash: ir.MustContentHash(delta),
	})
	require.NoError(t, err)

	// An update for a listing that was never created.
	_, err = ledger.Append(ctx, ir.LedgerEntry{
		Kind: ir.KindUpdated, EntityID: "LIST-GHOST", Version: 1,
		Payload: delta, ContentHash: ir.MustContentHash(delta),
	})
	require.NoError(t, err)

	report, err := env.engine.AuditLog(ctx)
	require.NoError(t, err)
	require.False(t, report.OK())

	var problems []AuditProblem
	for _, f := range report.Findings {
		problems = append(problems, f.Problem)
	}
	assert.Equal(t, []AuditProblem{
		ProblemPayloadHash,  // seq 2 payload
		ProblemSnapshotHash, // seq 2 snapshot
		ProblemSnapshotHash, // seq 3 snapshot
		ProblemSkipped,      // seq 4
	}, problems)
	assert.Equal(t, int64(2), report.Findings[0].Seq)
	assert.Equal(t, int64(4), report.Findings[3].Seq)
	assert.Equal(t, "unknown_entity", report.Findings[3].Detail)
	assert.Contains(t, env.logs.String(), "ledger audit found problems")
}
