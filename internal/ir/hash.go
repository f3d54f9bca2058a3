package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for derived references.
// Content hashes deliberately carry no domain prefix; see ContentHash.
const (
	DomainTransactionRef = "marketledger/txref/v1"
	DomainBuyerRef       = "marketledger/buyer/v1"
)

// ContentIDPrefix marks display identifiers derived from content hashes.
const ContentIDPrefix = "Qm"

// contentIDLength is the number of hash characters kept after the prefix.
const contentIDLength = 44

// TimeFormat is the timestamp layout used inside hashed material.
// Millisecond precision, always UTC ("2025-01-01T00:00:00.000Z").
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the content hash of a payload snapshot:
// Digest(MarshalCanonical(p)).
//
// No domain prefix is mixed in. Recorded listings were hashed this way and
// verification must reproduce those exact digests.
func ContentHash(p Payload) (string, error) {
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return Digest(canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(p Payload) string {
	h, err := ContentHash(p)
	if err != nil {
		panic(err)
	}
	return h
}

// ContentID derives a human-facing identifier from a content hash.
// Purely cosmetic: never compare ContentIDs to decide integrity.
func ContentID(hash string) string {
	if len(hash) > contentIDLength {
		hash = hash[:contentIDLength]
	}
	return ContentIDPrefix + hash
}

// TransactionRef binds an entry to its timestamp, entity and kind.
// It is derived data: nothing in the payload can be checked against it.
func TransactionRef(recordedAt time.Time, entityID string, kind Kind) (string, error) {
	obj := Payload{}
	if err := obj.Set("entityId", entityID); err != nil {
		return "", err
	}
	if err := obj.Set("kind", string(kind)); err != nil {
		return "", err
	}
	if err := obj.Set("timestamp", FormatTime(recordedAt)); err != nil {
		return "", err
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TransactionRef: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTransactionRef, canonical), nil
}

// BuyerRef returns the reference stored in place of a buyer identity.
func BuyerRef(buyerID string) string {
	return hashWithDomain(DomainBuyerRef, []byte(buyerID))
}

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
