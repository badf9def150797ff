package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher derives stable identifiers from values that must not be kept in
// clear text, such as certificate passphrases in cache keys.
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		fallthrough
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields hashes a set of fields. Order does not matter.
func (h *Hasher) HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return h.HashString(strings.Join(sorted, "|"))
}
