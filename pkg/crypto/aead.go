package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// NonceSize is the AES-GCM nonce length FSCP uses for DATA messages.
const NonceSize = 12

// BuildNonce constructs the per-message AES-GCM nonce: a 8-byte
// per-direction random prefix fixed for the life of the session, followed
// by the 4-byte big-endian sequence number (spec §4.4.3). Reusing a
// (key, nonce) pair would break AEAD confidentiality, so the sequence
// number must strictly increase for every message sent under the same key.
func BuildNonce(prefix [8]byte, sequenceNumber uint32) [NonceSize]byte {
	var nonce [NonceSize]byte
	copy(nonce[:8], prefix[:])
	binary.BigEndian.PutUint32(nonce[8:], sequenceNumber)
	return nonce
}

// AEAD wraps an AES-GCM cipher.AEAD for a single key. FSCP's DATA channel
// uses a 16-byte authentication tag for every cipher suite (spec §6).
type AEAD struct {
	aead cipher.AEAD
}

// NewAEAD builds an AEAD instance from a 16- or 32-byte key, matching the
// key size implied by the negotiated CipherSuite.
func NewAEAD(key []byte) (*AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: gcm}, nil
}

// Seal encrypts plaintext and appends its tag, using nonce and aad as the
// AEAD inputs. The returned slice is ciphertext followed by a 16-byte tag.
func (a *AEAD) Seal(nonce [NonceSize]byte, plaintext, aad []byte) []byte {
	return a.aead.Seal(nil, nonce[:], plaintext, aad)
}

// Open verifies and decrypts a sealed buffer (ciphertext || tag) produced
// by Seal, returning an error if authentication fails.
func (a *AEAD) Open(nonce [NonceSize]byte, sealed, aad []byte) ([]byte, error) {
	return a.aead.Open(nil, nonce[:], sealed, aad)
}
