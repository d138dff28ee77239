package verification

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the SHA-256 content hash, hex-encoded. It covers the
// entire file, not the bounded scan window: the digest is an identity value
// used for duplicate and flag lookups, and truncation would create false
// matches and misses.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
