package badger

import "github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a flat key-value store, so record keys carry a prefix that
// keeps them apart from bookkeeping keys:
//
// Data Type      Prefix   Key Format            Value Type
// ==========================================================
// Record         "r:"     r:<raw identifier>    record (XDR)
// Schema         "meta:"  meta:version          uint32 (decimal string)
//
// Identifiers are appended as raw bytes. They may contain any byte value,
// including ':' and 0x00; the fixed-length prefix makes that unambiguous.

const (
	prefixRecord = "r:"

	keySchemaVersion = "meta:version"

	schemaVersion = "1"
)

// keyRecord returns the key under which the record for id is stored.
func keyRecord(id metadata.Identifier) []byte {
	key := make([]byte, 0, len(prefixRecord)+len(id))
	key = append(key, prefixRecord...)
	return append(key, id...)
}
