package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainJournalEntry = "plumage/journal-entry/v1"
	DomainSnapshot     = "plumage/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// JournalEntryID computes the content-addressed ID of a journal entry.
// The same operation on the same document at the same sequence always
// hashes to the same ID, which makes journal appends idempotent.
func JournalEntryID(op, collection, id string, item Value, seq int64) (string, error) {
	if item == nil {
		item = Null{}
	}
	obj := ObjectOf(
		P("op", String(op)),
		P("collection", String(collection)),
		P("id", String(id)),
		P("item", item),
		P("seq", Number(seq)),
	)
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("JournalEntryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainJournalEntry, canonical), nil
}

// SnapshotHash hashes a value for change detection in traces and dumps.
func SnapshotHash(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustJournalEntryID is like JournalEntryID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustJournalEntryID(op, collection, id string, item Value, seq int64) string {
	out, err := JournalEntryID(op, collection, id, item, seq)
	if err != nil {
		panic(err)
	}
	return out
}
