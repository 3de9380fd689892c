// Package md5 provides content-address hashing for blob dedup.
// Collision risk is acceptable here: the hash only keys deduplication.
package md5

import (
	"crypto/md5" //nolint:gosec // dedup key, not a security boundary
	"encoding/hex"
)

// Hasher derives hex MD5 digests.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
