package contextbuilder

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes a bounded prefix of the lower-cased text. Chunks of
// the same passage cut with different boundaries or overlap share a long
// common prefix, so a cheap prefix hash catches the common duplicate case
// without pairwise similarity computation. The prefix is measured in runes
// because source documents are frequently non-ASCII.
//
// This is a heuristic: duplicates differing in their first prefixLength
// characters are missed, and distinct passages sharing boilerplate
// openings collide. The prefix length is a tunable, not a constant.
func Fingerprint(text string, prefixLength int) string {
	if prefixLength <= 0 {
		prefixLength = DefaultDuplicatePrefixLength
	}
	lowered := strings.ToLower(text)
	runes := []rune(lowered)
	if len(runes) > prefixLength {
		lowered = string(runes[:prefixLength])
	}
	sum := sha256.Sum256([]byte(lowered))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether the text's fingerprint is already in seen.
// It does not insert: callers record the fingerprint only after accepting
// the chunk.
func IsDuplicate(text string, prefixLength int, seen map[string]struct{}) bool {
	_, ok := seen[Fingerprint(text, prefixLength)]
	return ok
}
