package endpoint

import "errors"

// Package endpoint errors.
var (
	// ErrClosed reports an operation on a closed Endpoint. Greet and
	// Introduce do not check for Close and do not return it.
	ErrClosed = errors.New("endpoint: closed")

	// ErrUnknownPeer is returned when an operation names a peer address or
	// certificate hash this Endpoint has no Session for.
	ErrUnknownPeer = errors.New("endpoint: unknown peer")

	// ErrMessageTooLarge is returned when a Session hands udpSender a
	// payload larger than wire.MaxMTU; this should never happen in
	// practice since the wire package itself refuses to encode one.
	ErrMessageTooLarge = errors.New("endpoint: encoded message exceeds MTU")

	// ErrRejectedUnknownPeer names the case of a HELLO_REQUEST from an
	// address with no existing Session while Config.AcceptUnknownPeers is
	// false. udpLoop drops such a datagram with a DEBUG log entry
	// ("endpoint.udp_unknown_peer") and nothing is sent to the remote; the
	// error value itself is not returned.
	ErrRejectedUnknownPeer = errors.New("endpoint: rejected handshake from unrecognised address")
)
