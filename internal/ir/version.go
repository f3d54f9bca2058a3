package ir

// Version constants for the ledger record format.
const (
	// FormatVersion is the ledger entry format version.
	FormatVersion = "1"

	// EngineVersion is the marketledger engine version.
	EngineVersion = "0.1.0"
)
