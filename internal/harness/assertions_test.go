package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketledger/internal/engine"
	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/store"
	"github.com/roach88/marketledger/internal/testutil"
)

// seededEngine returns an engine holding a sold LIST-0001 (farmer-1, Rice)
// and a listed LIST-0002 (farmer-2, Maize), plus the resulting ledger.
func seededEngine(t *testing.T) (*engine.Engine, *Result) {
	t.Helper()
	ctx := context.Background()

	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng := engine.New(st, engine.WithIDGenerator(testutil.NewSequentialIDGenerator(engine.DefaultIDPrefix)))

	farmer1 := engine.Caller{ID: "farmer-1"}
	_, err = eng.Create(ctx, farmer1, engine.CreateRequest{
		Fields: ir.MustPayload(map[string]any{"crop": "Rice", "price": 3000, "location": map[string]any{"city": "Pune"}}),
	})
	require.NoError(t, err)
	_, err = eng.Create(ctx, engine.Caller{ID: "farmer-2"}, engine.CreateRequest{
		Fields: ir.MustPayload(map[string]any{"crop": "Maize", "price": 180}),
	})
	require.NoError(t, err)
	_, err = eng.MarkSold(ctx, farmer1, engine.SaleRequest{ID: "LIST-0001", Documents: []string{"invoice.pdf"}})
	require.NoError(t, err)

	log, err := st.ReadAll(ctx)
	require.NoError(t, err)

	result := NewResult()
	result.Log = log
	return eng, result
}

func TestAssertEntity_Match(t *testing.T) {
	eng, result := seededEngine(t)

	errs := EvaluateAssertions(context.Background(), eng, result, []Assertion{
		{
			Type:    AssertEntity,
			ID:      "LIST-0001",
			Status:  "SOLD",
			Version: 2,
			Owner:   "farmer-1",
			Fields: map[string]interface{}{
				"crop":     "Rice",
				"price":    3000.0,
				"location": map[string]interface{}{"city": "Pune"},
			},
		},
	})
	assert.Empty(t, errs)
}

func TestAssertEntity_Mismatch(t *testing.T) {
	eng, result := seededEngine(t)

	errs := EvaluateAssertions(context.Background(), eng, result, []Assertion{
		{
			Type:   AssertEntity,
			ID:     "LIST-0002",
			Status: "SOLD",
			Owner:  "farmer-1",
			Fields: map[string]interface{}{"price": 200, "unit": "kg"},
		},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "status=LISTED (want SOLD)")
	assert.Contains(t, errs[0], "owner=farmer-2 (want farmer-1)")
	assert.Contains(t, errs[0], "fields.price=180 (want 200)")
	assert.Contains(t, errs[0], "fields.unit missing")
}

func TestAssertEntity_NotFound(t *testing.T) {
	eng, result := seededEngine(t)

	errs := EvaluateAssertions(context.Background(), eng, result, []Assertion{
		{Type: AssertEntity, ID: "LIST-0404"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "listing LIST-0404")
	assert.Contains(t, errs[0], "NOT_FOUND")
}

func TestAssertLogKinds(t *testing.T) {
	eng, result := seededEngine(t)
	ctx := context.Background()

	errs := EvaluateAssertions(ctx, eng, result, []Assertion{
		{Type: AssertLogKinds, Kinds: []string{"CREATED", "CREATED", "SOLD"}},
	})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(ctx, eng, result, []Assertion{
		{Type: AssertLogKinds, Kinds: []string{"CREATED", "SOLD"}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: [CREATED SOLD]")
	assert.Contains(t, errs[0], "Actual: [CREATED CREATED SOLD]")
}

func TestAssertLogCount(t *testing.T) {
	eng, result := seededEngine(t)
	ctx := context.Background()

	assert.Empty(t, EvaluateAssertions(ctx, eng, result, []Assertion{
		{Type: AssertLogCount, Count: intPtr(3)},
	}))

	errs := EvaluateAssertions(ctx, eng, result, []Assertion{
		{Type: AssertLogCount, Count: intPtr(0)},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 0 entries")
	assert.Contains(t, errs[0], "Actual: 3 entries")
}

func TestAssertList(t *testing.T) {
	eng, result := seededEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter *ListFilter
		ids    []string
	}{
		{name: "default newest first", ids: []string{"LIST-0002", "LIST-0001"}},
		{name: "active only", filter: &ListFilter{Active: true}, ids: []string{"LIST-0002"}},
		{name: "by status", filter: &ListFilter{Status: "SOLD"}, ids: []string{"LIST-0001"}},
		{name: "by owner", filter: &ListFilter{Owner: "farmer-2"}, ids: []string{"LIST-0002"}},
		{name: "no match", filter: &ListFilter{Status: "DELISTED"}, ids: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(ctx, eng, result, []Assertion{
				{Type: AssertList, Filter: tt.filter, IDs: tt.ids},
			})
			assert.Empty(t, errs)
		})
	}
}

func TestAssertList_WrongOrder(t *testing.T) {
	eng, result := seededEngine(t)

	errs := EvaluateAssertions(context.Background(), eng, result, []Assertion{
		{Type: AssertList, IDs: []string{"LIST-0001", "LIST-0002"}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Assertion failed: list")
}

func TestAssertAuditClean(t *testing.T) {
	eng, result := seededEngine(t)

	errs := EvaluateAssertions(context.Background(), eng, result, []Assertion{
		{Type: AssertAuditClean},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_CollectsEveryFailure(t *testing.T) {
	eng, result := seededEngine(t)

	errs := EvaluateAssertions(context.Background(), eng, result, []Assertion{
		{Type: AssertLogCount, Count: intPtr(3)},
		{Type: AssertLogCount, Count: intPtr(9)},
		{Type: AssertEntity, ID: "LIST-0001", Status: "LISTED"},
		{Type: "trace_contains"},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[2], `assertion[3]: unknown assertion type "trace_contains"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertLogCount,
		Expected: "2 entries",
		Actual:   "1 entries",
		Log: []ir.LedgerEntry{
			{Seq: 1, Kind: ir.KindCreated, EntityID: "LIST-0001", Version: 1, Actor: "farmer-1"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: log_count")
	assert.Contains(t, msg, "Expected: 2 entries")
	assert.Contains(t, msg, "Actual: 1 entries")
	assert.Contains(t, msg, "[1] CREATED LIST-0001 v1 by farmer-1")
}
