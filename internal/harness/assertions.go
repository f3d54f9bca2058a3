package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/marketledger/internal/engine"
	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/projection"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Log      []ir.LedgerEntry // Full ledger for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Log) > 0 {
		fmt.Fprintf(&buf, "\nLedger:\n")
		for _, entry := range e.Log {
			fmt.Fprintf(&buf, "  [%d] %s %s v%d by %s\n",
				entry.Seq, entry.Kind, entry.EntityID, entry.Version, entry.Actor)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks all assertions against the final ledger and
// returns one message per failed assertion.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEntity:
			err = assertEntity(ctx, eng, result.Log, assertion)
		case AssertLogKinds:
			err = assertLogKinds(result.Log, assertion)
		case AssertLogCount:
			err = assertLogCount(result.Log, assertion)
		case AssertList:
			err = assertList(ctx, eng, result.Log, assertion)
		case AssertAuditClean:
			err = assertAuditClean(ctx, eng, result.Log)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// assertEntity checks a listing's projected state.
// Fields use subset semantics: only the named fields are compared.
func assertEntity(ctx context.Context, eng *engine.Engine, log []ir.LedgerEntry, a Assertion) error {
	ent, err := eng.Get(ctx, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("listing %s", a.ID),
			Actual:   err.Error(),
			Log:      log,
		}
	}

	var mismatches []string
	if a.Status != "" && string(ent.Status) != a.Status {
		mismatches = append(mismatches, fmt.Sprintf("status=%s (want %s)", ent.Status, a.Status))
	}
	if a.Version != 0 && ent.Version != a.Version {
		mismatches = append(mismatches, fmt.Sprintf("version=%d (want %d)", ent.Version, a.Version))
	}
	if a.Owner != "" && ent.OwnerID != a.Owner {
		mismatches = append(mismatches, fmt.Sprintf("owner=%s (want %s)", ent.OwnerID, a.Owner))
	}
	if a.Hash != "" && ent.CurrentHash != a.Hash {
		mismatches = append(mismatches, fmt.Sprintf("hash=%s (want %s)", ent.CurrentHash, a.Hash))
	}
	for _, key := range sortedFieldKeys(a.Fields) {
		if msg := compareField(ent.Fields, key, a.Fields[key]); msg != "" {
			mismatches = append(mismatches, msg)
		}
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("listing %s to match", a.ID),
			Actual:   strings.Join(mismatches, ", "),
			Log:      log,
		}
	}
	return nil
}

// compareField compares one projected field with a YAML value by their
// decoded JSON form, so 3000 and 3000.0 are equal.
func compareField(fields ir.Payload, key string, want interface{}) string {
	raw, ok := fields[key]
	if !ok {
		return fmt.Sprintf("fields.%s missing", key)
	}

	var got interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		return fmt.Sprintf("fields.%s: %v", key, err)
	}

	wantJSON, err := json.Marshal(want)
	if err != nil {
		return fmt.Sprintf("fields.%s: %v", key, err)
	}
	var wantValue interface{}
	if err := json.Unmarshal(wantJSON, &wantValue); err != nil {
		return fmt.Sprintf("fields.%s: %v", key, err)
	}

	if !reflect.DeepEqual(got, wantValue) {
		return fmt.Sprintf("fields.%s=%s (want %s)", key, raw, wantJSON)
	}
	return ""
}

// assertLogKinds checks the kind of every entry in append order.
func assertLogKinds(log []ir.LedgerEntry, a Assertion) error {
	got := make([]string, len(log))
	for i, entry := range log {
		got[i] = string(entry.Kind)
	}

	if !reflect.DeepEqual(got, a.Kinds) {
		return &AssertionError{
			Type:     AssertLogKinds,
			Expected: fmt.Sprintf("%v", a.Kinds),
			Actual:   fmt.Sprintf("%v", got),
			Log:      log,
		}
	}
	return nil
}

// assertLogCount checks the number of entries.
func assertLogCount(log []ir.LedgerEntry, a Assertion) error {
	if len(log) != *a.Count {
		return &AssertionError{
			Type:     AssertLogCount,
			Expected: fmt.Sprintf("%d entries", *a.Count),
			Actual:   fmt.Sprintf("%d entries", len(log)),
			Log:      log,
		}
	}
	return nil
}

// assertList checks the ids List returns, in order.
func assertList(ctx context.Context, eng *engine.Engine, log []ir.LedgerEntry, a Assertion) error {
	var filter projection.Filter
	if a.Filter != nil {
		filter = projection.Filter{
			Status:          ir.Status(a.Filter.Status),
			ActiveOnly:      a.Filter.Active,
			IncludeDelisted: a.Filter.IncludeDelisted,
			OwnerID:         a.Filter.Owner,
		}
	}

	entities, err := eng.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	got := make([]string, len(entities))
	for i, ent := range entities {
		got[i] = ent.ID
	}

	if !reflect.DeepEqual(got, a.IDs) {
		return &AssertionError{
			Type:     AssertList,
			Expected: fmt.Sprintf("%v", a.IDs),
			Actual:   fmt.Sprintf("%v", got),
			Log:      log,
		}
	}
	return nil
}

// assertAuditClean replays the ledger and requires no findings.
func assertAuditClean(ctx context.Context, eng *engine.Engine, log []ir.LedgerEntry) error {
	report, err := eng.AuditLog(ctx)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if report.OK() {
		return nil
	}

	problems := make([]string, len(report.Findings))
	for i, f := range report.Findings {
		problems[i] = fmt.Sprintf("[%d] %s %s", f.Seq, f.EntityID, f.Problem)
	}
	return &AssertionError{
		Type:     AssertAuditClean,
		Expected: "no audit findings",
		Actual:   strings.Join(problems, "; "),
		Log:      log,
	}
}

func sortedFieldKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
