package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the size of a state hash in bytes.
const HashSize = 32

// Hash is a SHA-256 digest of a canonical state snapshot.
type Hash [HashSize]byte

// NewHash creates a Hash from bytes, returning an error if invalid.
// Use for untrusted input (network, files).
func NewHash(data []byte) (Hash, error) {
	if len(data) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(data))
	}
	var h Hash
	copy(h[:], data)
	return h, nil
}

// MustNewHash creates a Hash, panicking if invalid.
// Use only for trusted internal data.
func MustNewHash(data []byte) Hash {
	h, err := NewHash(data)
	if err != nil {
		panic(err)
	}
	return h
}

// HashBytes computes the SHA-256 hash of data.
func HashBytes(data []byte) Hash {
	return sha256.Sum256(data)
}

// HashEmpty returns the zero hash.
func HashEmpty() Hash {
	return Hash{}
}

// IsHashEmpty returns true if the hash is all zeros.
func IsHashEmpty(h Hash) bool {
	return h == Hash{}
}

// HashEqual compares two hashes.
func HashEqual(a, b Hash) bool {
	return a == b
}

// HashString returns the hex-encoded hash.
func HashString(h Hash) string {
	return hex.EncodeToString(h[:])
}

// ShortString returns the first 8 hex characters, for logging.
func (h Hash) ShortString() string {
	return hex.EncodeToString(h[:4])
}

// MarshalText encodes the hash as hex for wire and config use.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText decodes a hex-encoded hash.
func (h *Hash) UnmarshalText(text []byte) error {
	data, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash encoding: %w", err)
	}
	parsed, err := NewHash(data)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
