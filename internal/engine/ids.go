package engine

import (
	"github.com/google/uuid"
)

// DefaultIDPrefix is prepended to generated listing ids.
const DefaultIDPrefix = "LIST"

// UUIDv7Generator generates time-sortable listing ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so generated ids
// sort by creation time. This is helpful when reading raw ledger dumps.
//
// Format: "LIST-0190a5c8-7b2e-7c3d-9f1a-2b3c4d5e6f70"
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct {
	// Prefix replaces DefaultIDPrefix when set.
	Prefix string
}

// Generate creates a new id.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}
