package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/marketledger/internal/ir"
)

// ErrVersionConflict is returned when an appended entry's Version is not
// exactly one past the entity's last stored version.
var ErrVersionConflict = errors.New("version conflict")

// ErrInvalidEntry is returned for entries that can never be stored
// (unknown kind, empty entity id, non-positive version).
var ErrInvalidEntry = errors.New("invalid ledger entry")

// recordedAtLayout is the TEXT layout of recorded_at.
// Fixed width so lexical order equals time order.
const recordedAtLayout = "2006-01-02T15:04:05.000000000Z"

// validateEntry checks the parts of an entry the store is responsible for.
func validateEntry(entry ir.LedgerEntry) error {
	if !entry.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, entry.Kind)
	}
	if entry.EntityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidEntry)
	}
	if entry.Version < 1 {
		return fmt.Errorf("%w: version %d", ErrInvalidEntry, entry.Version)
	}
	if entry.Kind == ir.KindCreated && entry.Version != 1 {
		return fmt.Errorf("%w: CREATED must be version 1, got %d", ErrVersionConflict, entry.Version)
	}
	return nil
}

// checkVersion enforces the optimistic concurrency rule.
func checkVersion(entry ir.LedgerEntry, lastVersion int64) error {
	if entry.Version != lastVersion+1 {
		return fmt.Errorf("%w: entity %s at version %d, entry claims %d",
			ErrVersionConflict, entry.EntityID, lastVersion, entry.Version)
	}
	return nil
}

// stamp assigns the store-owned fields of an entry.
// RecordedAt is clamped to last so the log never goes back in time, and
// truncated to milliseconds, the precision used in hashed material.
func stamp(entry *ir.LedgerEntry, seq int64, now, last time.Time) error {
	recordedAt := now.UTC().Truncate(time.Millisecond)
	if recordedAt.Before(last) {
		recordedAt = last
	}

	ref, err := ir.TransactionRef(recordedAt, entry.EntityID, entry.Kind)
	if err != nil {
		return err
	}

	entry.Seq = seq
	entry.RecordedAt = recordedAt
	entry.TransactionRef = ref
	if entry.Payload == nil {
		entry.Payload = ir.Payload{}
	}
	return nil
}

// marshalPayload converts a payload to canonical JSON TEXT for storage.
func marshalPayload(p ir.Payload) (string, error) {
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored TEXT back into a Payload.
func unmarshalPayload(data string) (ir.Payload, error) {
	if data == "" || data == "{}" {
		return ir.Payload{}, nil
	}
	p, err := ir.ParsePayload([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

func formatRecordedAt(t time.Time) string {
	return t.UTC().Format(recordedAtLayout)
}

func parseRecordedAt(s string) (time.Time, error) {
	t, err := time.Parse(recordedAtLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recorded_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
