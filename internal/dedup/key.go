// Package dedup implements content-hash based deduplication primitives:
// the content fingerprint, the cache-key composition, and a per-key lock
// table that serializes compute-and-store for identical keys.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes derives the content fingerprint of raw upload bytes: a 64-char
// lowercase hex SHA-256 digest. Deterministic, no I/O.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key is the unit of deduplication: two uploads sharing a Key are logically
// equivalent in summarization outcome. Distinct prompt templates always
// produce distinct keys, even for identical content.
type Key struct {
	ContentHash      string
	PromptTemplateID string // empty for legacy records without a template
}

// NewKey composes a cache key from a content fingerprint and an optional
// prompt template reference. Pure function: equal inputs, equal keys.
func NewKey(contentHash string, promptTemplateID *string) Key {
	k := Key{ContentHash: contentHash}
	if promptTemplateID != nil {
		k.PromptTemplateID = *promptTemplateID
	}
	return k
}

// String renders the key as "hash:templateID" for use as a lock or map key.
// Hashes are fixed-width hex and template IDs are UUIDs, so the separator
// cannot be ambiguous.
func (k Key) String() string {
	return k.ContentHash + ":" + k.PromptTemplateID
}
