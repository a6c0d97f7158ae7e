// Package wire implements FSCP message framing: the fixed 4-byte header,
// the per-type body encodings, and the control sub-messages carried inside
// DATA channel 15 (keep-alive and contact introduction). Parsing is a pure
// function over a byte slice; it never panics and never mutates its input.
package wire

import "errors"

// Header and framing errors. Every one of these is a "drop and log"
// condition for the caller (see spec §4.1) — none is ever surfaced to the
// peer on the wire.
var (
	ErrTooShort        = errors.New("wire: datagram too short")
	ErrInvalidVersion  = errors.New("wire: unsupported protocol version")
	ErrLengthMismatch  = errors.New("wire: body length disagrees with datagram size")
	ErrUnknownType     = errors.New("wire: unknown message type")
	ErrInvalidChannel  = errors.New("wire: DATA channel beyond range 0-15")
	ErrTooLarge        = errors.New("wire: encoded message exceeds MTU")
	ErrMalformedBody   = errors.New("wire: malformed message body")
	ErrUnknownSubType  = errors.New("wire: unknown control sub-message type")
	ErrInvalidFamily   = errors.New("wire: invalid contact endpoint family")
)

// Wire-format sizes, all from spec §4.1.
const (
	// HeaderSize is the fixed 4-byte FSCP header: version, type, body length.
	HeaderSize = 4

	// ProtocolVersion is the only version this codec emits or accepts.
	ProtocolVersion uint8 = 3

	// HostIdentifierSize is the size of the random per-Endpoint identifier.
	HostIdentifierSize = 32

	// CertificateHashSize is the SHA-256 hash size used to identify peers
	// in the contact sub-protocol.
	CertificateHashSize = 32

	// AEADTagSize is the AES-GCM authentication tag size.
	AEADTagSize = 16

	// SequenceNumberSize is the width of the per-direction sequence number.
	SequenceNumberSize = 4

	// MaxMTU bounds every encoded message; the default matches a
	// conservative Ethernet-over-UDP budget (spec §8 property 1).
	MaxMTU = 1500

	// DataChannelBase is the high-nibble base of the DATA message types
	// (type bytes 0x70..0x7F encode channel 0..15 in their low 4 bits).
	DataChannelBase uint8 = 0x70

	// ControlChannel is channel 15, reserved for KEEP_ALIVE, CONTACT_REQUEST
	// and CONTACT sub-messages (spec §4.4.3).
	ControlChannel uint8 = 15
)
