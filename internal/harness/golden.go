package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/marketledger/internal/ir"
)

// GoldenDir is where golden ledger snapshots live, relative to the test's
// package directory.
const GoldenDir = "testdata/golden"

// Snapshot renders a ledger as golden file content: one canonical JSON
// object per entry, in append order, newline terminated.
//
// Every field is included, so a snapshot pins content hashes, transaction
// refs and timestamps as well as payloads.
func Snapshot(log []ir.LedgerEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range log {
		line, err := snapshotEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("snapshot seq %d: %w", entry.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func snapshotEntry(entry ir.LedgerEntry) ([]byte, error) {
	payload, err := ir.MarshalCanonical(entry.Payload)
	if err != nil {
		return nil, err
	}

	obj := ir.Payload{"payload": json.RawMessage(payload)}
	fields := map[string]any{
		"seq":            entry.Seq,
		"kind":           string(entry.Kind),
		"entityId":       entry.EntityID,
		"version":        entry.Version,
		"contentHash":    entry.ContentHash,
		"transactionRef": entry.TransactionRef,
		"actor":          entry.Actor,
		"recordedAt":     ir.FormatTime(entry.RecordedAt),
	}
	for k, v := range fields {
		if err := obj.Set(k, v); err != nil {
			return nil, err
		}
	}
	return ir.MarshalCanonical(obj)
}

// RunWithGolden executes a scenario, fails t on any unmet expectation and
// compares the ledger against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's ledger against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result.Log)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
