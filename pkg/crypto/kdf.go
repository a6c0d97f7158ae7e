package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256 derives key material using HKDF-SHA256 (RFC 5869).
//
// Parameters:
//   - inputKey: Input keying material (IKM)
//   - salt: Optional salt value (can be nil or empty)
//   - info: Optional context/application-specific info (can be nil or empty)
//   - length: Number of bytes to derive
//
// Returns the derived key material of the specified length.
func HKDFSHA256(inputKey, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, inputKey, salt, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// HKDFExtractSHA256 performs only the HKDF-Extract operation, producing a
// pseudorandom key (PRK) from the input keying material.
func HKDFExtractSHA256(inputKey, salt []byte) []byte {
	return hkdf.Extract(sha256.New, inputKey, salt)
}

// HKDFExpandSHA256 performs only the HKDF-Expand operation, expanding a PRK
// into output keying material.
func HKDFExpandSHA256(prk, info []byte, length int) ([]byte, error) {
	reader := hkdf.Expand(sha256.New, prk, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// SessionKeys holds the AEAD key and nonce prefix for each direction of one
// FSCP session (spec §4.3: aead_key_local, aead_key_remote,
// nonce_prefix_local, nonce_prefix_remote).
type SessionKeys struct {
	EncryptKey        []byte
	DecryptKey        []byte
	NoncePrefixLocal  [8]byte
	NoncePrefixRemote [8]byte
}

// DeriveSessionKeys expands the ECDHE master secret into the directional
// AEAD keys and nonce prefixes for a session, per the handshake in spec
// §4.2-§4.3. The info string binds both session numbers and both host
// identifiers, so neither party reuses key material across sessions.
//
// Both peers must derive the identical four-way split from the same
// master secret despite calling this with their own session_number and
// host_identifier as "local" and the peer's as "remote". To make that
// possible the info string is built from a canonical ordering - the lower
// session_number first, ties broken by the lower host_identifier - rather
// than from each side's own local/remote labeling; the result is then
// relabeled back into this call's local/remote terms before it returns.
func DeriveSessionKeys(masterSecret []byte, localSessionNumber, remoteSessionNumber uint32, localHostID, remoteHostID [32]byte, keySize int) (SessionKeys, error) {
	localIsFirst := localSessionNumber < remoteSessionNumber ||
		(localSessionNumber == remoteSessionNumber && bytes.Compare(localHostID[:], remoteHostID[:]) < 0)

	firstNum, secondNum := localSessionNumber, remoteSessionNumber
	firstHost, secondHost := localHostID, remoteHostID
	if !localIsFirst {
		firstNum, secondNum = remoteSessionNumber, localSessionNumber
		firstHost, secondHost = remoteHostID, localHostID
	}

	const label = "fscp session keys"
	info := make([]byte, 0, len(label)+4+4+32+32)
	info = append(info, label...)
	var num [4]byte
	binary.BigEndian.PutUint32(num[:], firstNum)
	info = append(info, num[:]...)
	binary.BigEndian.PutUint32(num[:], secondNum)
	info = append(info, num[:]...)
	info = append(info, firstHost[:]...)
	info = append(info, secondHost[:]...)

	prk := HKDFExtractSHA256(masterSecret, nil)
	material, err := HKDFExpandSHA256(prk, info, 2*keySize+16)
	if err != nil {
		return SessionKeys{}, err
	}
	keyFirst := material[:keySize]
	keySecond := material[keySize : 2*keySize]
	prefixFirst := material[2*keySize : 2*keySize+8]
	prefixSecond := material[2*keySize+8 : 2*keySize+16]

	var out SessionKeys
	if localIsFirst {
		out.EncryptKey, out.DecryptKey = keyFirst, keySecond
		copy(out.NoncePrefixLocal[:], prefixFirst)
		copy(out.NoncePrefixRemote[:], prefixSecond)
	} else {
		out.EncryptKey, out.DecryptKey = keySecond, keyFirst
		copy(out.NoncePrefixLocal[:], prefixSecond)
		copy(out.NoncePrefixRemote[:], prefixFirst)
	}
	return out, nil
}
