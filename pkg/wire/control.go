package wire

import (
	"crypto/rand"
	"encoding/binary"
)

// KeepAlivePaddingSizes is the small set of padding lengths KEEP_ALIVE may
// use, chosen to defeat traffic analysis of otherwise-fixed-size idle
// probes (spec §4.4.3).
var KeepAlivePaddingSizes = []int{0, 16, 32, 64}

// WriteKeepAlive builds a KEEP_ALIVE control sub-message with padLen
// random padding bytes. This is the plaintext payload handed to the AEAD
// layer for a DATA message on the control channel.
func WriteKeepAlive(padLen int) ([]byte, error) {
	buf := make([]byte, 2+padLen)
	buf[0] = uint8(SubTypeKeepAlive)
	buf[1] = uint8(padLen)
	if padLen > 0 {
		if _, err := rand.Read(buf[2:]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// ContactRequest lists certificate hashes the sender wants introductions
// for (spec §4.4.4).
type ContactRequest struct {
	Hashes [][CertificateHashSize]byte
}

// WriteContactRequest encodes a CONTACT_REQUEST control sub-message.
func WriteContactRequest(r ContactRequest) []byte {
	buf := make([]byte, 2+len(r.Hashes)*CertificateHashSize)
	buf[0] = uint8(SubTypeContactRequest)
	buf[1] = uint8(len(r.Hashes))
	off := 2
	for _, h := range r.Hashes {
		off += copy(buf[off:], h[:])
	}
	return buf
}

// ContactCandidate is one (hash, last-known address) pair in a CONTACT
// reply.
type ContactCandidate struct {
	Hash   [CertificateHashSize]byte
	Family ContactFamily
	Addr   []byte // 4 bytes for IPv4, 16 for IPv6
	Port   uint16
}

// Contact is the reply to a CONTACT_REQUEST (spec §4.4.4).
type Contact struct {
	Candidates []ContactCandidate
}

// WriteContact encodes a CONTACT control sub-message.
func WriteContact(c Contact) ([]byte, error) {
	size := 2
	for _, cand := range c.Candidates {
		if !cand.Family.IsValid() {
			return nil, ErrInvalidFamily
		}
		size += CertificateHashSize + 1 + cand.Family.AddrSize() + 2
	}
	buf := make([]byte, size)
	buf[0] = uint8(SubTypeContact)
	buf[1] = uint8(len(c.Candidates))
	off := 2
	for _, cand := range c.Candidates {
		off += copy(buf[off:], cand.Hash[:])
		buf[off] = uint8(cand.Family)
		off++
		off += copy(buf[off:], cand.Addr[:cand.Family.AddrSize()])
		binary.BigEndian.PutUint16(buf[off:], cand.Port)
		off += 2
	}
	return buf, nil
}

// DecodeControl parses the sub-type byte out of a decrypted control-channel
// payload and dispatches to the matching decoder.
func DecodeControl(payload []byte) (ControlSubType, []byte, error) {
	if len(payload) < 1 {
		return 0, nil, ErrMalformedBody
	}
	return ControlSubType(payload[0]), payload[1:], nil
}

// DecodeContactRequest parses a CONTACT_REQUEST body (post sub-type byte).
func DecodeContactRequest(body []byte) (ContactRequest, error) {
	if len(body) < 1 {
		return ContactRequest{}, ErrMalformedBody
	}
	count := int(body[0])
	rest := body[1:]
	if len(rest) != count*CertificateHashSize {
		return ContactRequest{}, ErrMalformedBody
	}
	r := ContactRequest{Hashes: make([][CertificateHashSize]byte, count)}
	for i := 0; i < count; i++ {
		copy(r.Hashes[i][:], rest[i*CertificateHashSize:(i+1)*CertificateHashSize])
	}
	return r, nil
}

// DecodeContact parses a CONTACT body (post sub-type byte).
func DecodeContact(body []byte) (Contact, error) {
	if len(body) < 1 {
		return Contact{}, ErrMalformedBody
	}
	count := int(body[0])
	rest := body[1:]
	c := Contact{Candidates: make([]ContactCandidate, 0, count)}
	off := 0
	for i := 0; i < count; i++ {
		if len(rest) < off+CertificateHashSize+1 {
			return Contact{}, ErrMalformedBody
		}
		var cand ContactCandidate
		copy(cand.Hash[:], rest[off:off+CertificateHashSize])
		off += CertificateHashSize
		cand.Family = ContactFamily(rest[off])
		off++
		if !cand.Family.IsValid() {
			return Contact{}, ErrInvalidFamily
		}
		addrSize := cand.Family.AddrSize()
		if len(rest) < off+addrSize+2 {
			return Contact{}, ErrMalformedBody
		}
		cand.Addr = append([]byte(nil), rest[off:off+addrSize]...)
		off += addrSize
		cand.Port = binary.BigEndian.Uint16(rest[off:])
		off += 2
		c.Candidates = append(c.Candidates, cand)
	}
	if off != len(rest) {
		return Contact{}, ErrMalformedBody
	}
	return c, nil
}
