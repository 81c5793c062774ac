// Package fingerprint derives deterministic identifiers from content.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"
)

// Of returns the lowercase hex SHA-256 digest of content. The bytes are
// hashed as given; callers normalise beforehand if they want to.
func Of(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

// MemoryID derives a memory item id from its content, category and creation time.
func MemoryID(content, category string, at time.Time) string {
	return "mem_" + Of(content + "|" + category + "|" + at.UTC().Format(time.RFC3339Nano))[:32]
}

// StickyID derives a sticky note id from its source, the hash of the content
// it was extracted from, and its position among the notes of that content.
// The same content from the same source always maps to the same ids.
func StickyID(sourceType, sourceID, contentHash string, seq int) string {
	key := sourceType + "|" + sourceID + "|" + contentHash + "|" + strconv.Itoa(seq)
	return "sticky_" + Of(key)[:24]
}
