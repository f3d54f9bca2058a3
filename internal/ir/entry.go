package ir

import "time"

// Kind identifies what a ledger entry records.
type Kind string

const (
	// KindCreated starts an entity; its payload is the full snapshot.
	KindCreated Kind = "CREATED"

	// KindUpdated changes mutable fields. Fields present in the payload
	// replace the projected ones; the engine always writes the full
	// post-update snapshot.
	KindUpdated Kind = "UPDATED"

	// KindSold closes an entity with sale metadata.
	KindSold Kind = "SOLD"

	// KindDelisted records an administrative removal. Terminal.
	KindDelisted Kind = "DELISTED"
)

// ValidKinds defines the entry kinds the projection understands.
var ValidKinds = map[Kind]bool{
	KindCreated:  true,
	KindUpdated:  true,
	KindSold:     true,
	KindDelisted: true,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return ValidKinds[k]
}

// LedgerEntry is one immutable record of the append-only log.
//
// Seq and RecordedAt are assigned by the store at append time. Version is the
// entity-local position (1 for CREATED) and doubles as the optimistic
// concurrency token: a store accepts version N only after version N-1.
type LedgerEntry struct {
	Seq            int64     `json:"seq"`
	Kind           Kind      `json:"kind"`
	EntityID       string    `json:"entityId"`
	Version        int64     `json:"version"`
	Payload        Payload   `json:"payload"`
	ContentHash    string    `json:"contentHash"`
	TransactionRef string    `json:"transactionRef"`
	Actor          string    `json:"actor"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// ChangesContent reports whether the entry's content hash becomes the
// entity's current hash.
func (e LedgerEntry) ChangesContent() bool {
	return e.Kind == KindCreated || e.Kind == KindUpdated
}
