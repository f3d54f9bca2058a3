package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/marketledger/internal/ir"
)

// Append stores entry at the end of the log and returns it with Seq,
// RecordedAt and TransactionRef filled in.
//
// The version check, the seq assignment and the insert run in one
// transaction, so concurrent readers see either the old or the new log.
// UNIQUE(entity_id, version) backs up the version check for writers in
// other processes.
func (s *Store) Append(ctx context.Context, entry ir.LedgerEntry) (ir.LedgerEntry, error) {
	if err := validateEntry(entry); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var lastVersion int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM ledger_entries WHERE entity_id = ?
	`, entry.EntityID).Scan(&lastVersion)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: read version: %w", err)
	}
	if err := checkVersion(entry, lastVersion); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	lastSeq, lastAt, err := readHead(ctx, tx)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	if err := stamp(&entry, lastSeq+1, s.clock(), lastAt); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	payloadJSON, err := marshalPayload(entry.Payload)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(seq, kind, entity_id, version, payload, content_hash, transaction_ref, actor, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Seq,
		string(entry.Kind),
		entry.EntityID,
		entry.Version,
		payloadJSON,
		entry.ContentHash,
		entry.TransactionRef,
		entry.Actor,
		formatRecordedAt(entry.RecordedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ir.LedgerEntry{}, fmt.Errorf("append: %w: %v", ErrVersionConflict, err)
		}
		return ir.LedgerEntry{}, fmt.Errorf("append: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: commit: %w", err)
	}

	return entry, nil
}

// readHead returns the seq and recorded_at of the last entry, or zero
// values for an empty log.
func readHead(ctx context.Context, tx *sql.Tx) (int64, time.Time, error) {
	var seq int64
	var recordedAt string
	err := tx.QueryRowContext(ctx, `
		SELECT seq, recorded_at FROM ledger_entries ORDER BY seq DESC LIMIT 1
	`).Scan(&seq, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("read head: %w", err)
	}

	at, err := parseRecordedAt(recordedAt)
	if err != nil {
		return 0, time.Time{}, err
	}
	return seq, at, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
