package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/marketledger/internal/ir"
)

const selectEntryColumns = `
	SELECT seq, kind, entity_id, version, payload, content_hash, transaction_ref, actor, recorded_at
	FROM ledger_entries
`

// ReadAll returns every entry in append order.
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadAll(ctx context.Context) ([]ir.LedgerEntry, error) {
	return s.queryEntries(ctx, selectEntryColumns+` ORDER BY seq ASC`)
}

// ReadEntity returns the entries of one entity in append order.
func (s *Store) ReadEntity(ctx context.Context, entityID string) ([]ir.LedgerEntry, error) {
	return s.queryEntries(ctx, selectEntryColumns+`
		WHERE entity_id = ?
		ORDER BY seq ASC
	`, entityID)
}

// ReadSince returns entries with seq > afterSeq in append order.
// Used to tail the log incrementally.
func (s *Store) ReadSince(ctx context.Context, afterSeq int64) ([]ir.LedgerEntry, error) {
	return s.queryEntries(ctx, selectEntryColumns+`
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
}

// LastSeq returns the seq of the newest entry, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_entries`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ir.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.LedgerEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// scanEntry scans a row into a LedgerEntry.
func scanEntry(rows *sql.Rows) (ir.LedgerEntry, error) {
	var entry ir.LedgerEntry
	var kind, payloadJSON, recordedAt string

	if err := rows.Scan(
		&entry.Seq, &kind, &entry.EntityID, &entry.Version, &payloadJSON,
		&entry.ContentHash, &entry.TransactionRef, &entry.Actor, &recordedAt,
	); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("scan entry: %w", err)
	}

	entry.Kind = ir.Kind(kind)

	payload, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("entry %d: %w", entry.Seq, err)
	}
	entry.Payload = payload

	at, err := parseRecordedAt(recordedAt)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("entry %d: %w", entry.Seq, err)
	}
	entry.RecordedAt = at

	return entry, nil
}
