package peer

import "errors"

// Package peer errors.
var (
	// ErrUnexpectedMessage is returned when a message arrives that the
	// current state does not expect (spec §4.4.1).
	ErrUnexpectedMessage = errors.New("peer: unexpected message for current state")

	// ErrReplayedHandshake is returned when a SESSION_REQUEST carries a
	// session_number that is not strictly greater than one this peer has
	// already accepted from the sender (spec §4.4.2).
	ErrReplayedHandshake = errors.New("peer: handshake session_number is not greater than the last accepted one")

	// ErrCapabilityMismatch is returned when a SESSION message chooses a
	// cipher suite or curve the sender never advertised in its
	// SESSION_REQUEST (spec §4.4.2).
	ErrCapabilityMismatch = errors.New("peer: chosen cipher suite or curve was not offered")

	// ErrInvalidSignature is returned when a handshake message's signature
	// or HMAC does not verify.
	ErrInvalidSignature = errors.New("peer: handshake signature verification failed")

	// ErrNoRemoteIdentity is returned when a signed handshake message
	// arrives before a PRESENTATION established the sender's certificate.
	ErrNoRemoteIdentity = errors.New("peer: no remote certificate on file")

	// ErrSessionNotEstablished is returned by SendData (and the other
	// data-plane sends) before the handshake has completed at least once.
	ErrSessionNotEstablished = errors.New("peer: session is not established")

	// ErrReplayDetected is returned when an incoming DATA sequence_number
	// falls outside the replay window or repeats one already seen
	// (spec §4.4.3).
	ErrReplayDetected = errors.New("peer: replay detected")

	// ErrUnknownSessionNumber is returned when a DATA datagram's
	// session_number is neither the current nor the next (rekeying) one.
	ErrUnknownSessionNumber = errors.New("peer: unknown session_number")

	// ErrInvalidChannel is returned for a DATA channel outside 0-15.
	ErrInvalidChannel = errors.New("peer: invalid data channel")

	// ErrHandshakeGaveUp is returned when the retransmission budget for a
	// handshake message is exhausted without progress (spec §4.4.6).
	ErrHandshakeGaveUp = errors.New("peer: handshake retransmission attempts exhausted")

	// ErrUnknownControlSubType is returned for an unrecognised control
	// sub-message opcode on channel 15.
	ErrUnknownControlSubType = errors.New("peer: unknown control sub-message type")

	// ErrDecryptionFailed is returned when a DATA message's AEAD tag does
	// not verify.
	ErrDecryptionFailed = errors.New("peer: data message decryption failed")
)
