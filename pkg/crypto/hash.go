// Package crypto provides the cryptographic primitives FSCP layers its
// handshake and data channel on: SHA-256 hashing, HMAC, HKDF key
// derivation, RSA-PSS signing, ECDHE key agreement and AES-GCM AEAD.
package crypto

import (
	"crypto/sha256"
	"hash"
)

const (
	SHA256LenBits  = 256
	SHA256LenBytes = 32
)

// SHA256 computes the SHA-256 cryptographic hash of a message. FSCP uses
// this to fingerprint certificates for the contact sub-protocol (spec
// §4.4.4).
//
// Returns a 32-byte (256-bit) hash digest.
func SHA256(message []byte) [SHA256LenBytes]byte {
	return sha256.Sum256(message)
}

// SHA256Slice computes the SHA-256 hash and returns it as a slice.
// This is a convenience function for cases where a slice is preferred.
func SHA256Slice(message []byte) []byte {
	h := sha256.Sum256(message)
	return h[:]
}

// NewSHA256 returns a new hash.Hash for computing SHA-256 digests incrementally.
// This is useful for hashing large data or streaming data.
//
// Usage:
//
//	h := crypto.NewSHA256()
//	h.Write(data1)
//	h.Write(data2)
//	digest := h.Sum(nil)
func NewSHA256() hash.Hash {
	return sha256.New()
}
