package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/marketledger/internal/ir"
)

// Memory is an in-process ledger with the same contract as Store.
// Safe for concurrent use; readers always get a copy of the log.
type Memory struct {
	mu       sync.RWMutex
	entries  []ir.LedgerEntry
	versions map[string]int64
	clock    func() time.Time
}

// NewMemory creates an empty in-memory ledger.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		versions: make(map[string]int64),
		clock:    o.clock,
	}
}

// Append stores entry at the end of the log.
func (m *Memory) Append(ctx context.Context, entry ir.LedgerEntry) (ir.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}
	if err := validateEntry(entry); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkVersion(entry, m.versions[entry.EntityID]); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	var lastAt time.Time
	if n := len(m.entries); n > 0 {
		lastAt = m.entries[n-1].RecordedAt
	}

	entry.Payload = entry.Payload.Clone()
	if err := stamp(&entry, int64(len(m.entries))+1, m.clock(), lastAt); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}
	if _, err := marshalPayload(entry.Payload); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("append: %w", err)
	}

	m.entries = append(m.entries, entry)
	m.versions[entry.EntityID] = entry.Version

	return copyEntry(entry), nil
}

// ReadAll returns every entry in append order.
func (m *Memory) ReadAll(ctx context.Context) ([]ir.LedgerEntry, error) {
	return m.filter(ctx, func(ir.LedgerEntry) bool { return true })
}

// ReadEntity returns the entries of one entity in append order.
func (m *Memory) ReadEntity(ctx context.Context, entityID string) ([]ir.LedgerEntry, error) {
	return m.filter(ctx, func(e ir.LedgerEntry) bool { return e.EntityID == entityID })
}

// ReadSince returns entries with seq > afterSeq in append order.
func (m *Memory) ReadSince(ctx context.Context, afterSeq int64) ([]ir.LedgerEntry, error) {
	return m.filter(ctx, func(e ir.LedgerEntry) bool { return e.Seq > afterSeq })
}

// LastSeq returns the seq of the newest entry, or 0 for an empty log.
func (m *Memory) LastSeq(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func (m *Memory) filter(ctx context.Context, keep func(ir.LedgerEntry) bool) ([]ir.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ir.LedgerEntry{}
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func copyEntry(e ir.LedgerEntry) ir.LedgerEntry {
	e.Payload = e.Payload.Clone()
	return e
}
