// Package peer implements PeerSession, the per-peer finite state machine
// that drives the FSCP handshake, rekeying and data-plane encryption.
//
// A PeerSession owns all state for one remote peer: its current state
// (§4.4.1), the handshake material in flight, the current and next-pending
// session keys, sequence counters and replay window (§4.4.3), and the
// retransmission timer for whichever handshake message is outstanding
// (§4.4.6). The owning Endpoint guarantees that no two datagrams from the
// same peer are processed concurrently, so PeerSession itself does not
// need to be safe for concurrent use from multiple goroutines at once; it
// still guards its own state with a mutex so status accessors (used by
// monitoring and by the router) can be called from other goroutines
// without racing the datagram-processing goroutine.
package peer

// State is a PeerSession's position in the handshake/rekey state machine
// (spec §4.4.1).
type State int

const (
	// StateUnknown is the initial state: no handshake has been attempted.
	StateUnknown State = iota

	// StateHelloSent: a HELLO_REQUEST was sent and a HELLO_RESPONSE is
	// awaited.
	StateHelloSent

	// StatePresented: PRESENTATION has been exchanged (sent, and received
	// if the peer was already known) and a SESSION_REQUEST is awaited or
	// about to be sent.
	StatePresented

	// StateSessionRequested: a SESSION_REQUEST was sent and the peer's
	// SESSION_REQUEST or SESSION is awaited.
	StateSessionRequested

	// StateHalfEstablished: a SESSION was sent in response to the peer's
	// SESSION_REQUEST, but the peer's own SESSION has not yet arrived.
	StateHalfEstablished

	// StateEstablished: both sides have sent and verified a SESSION; the
	// data plane is usable.
	StateEstablished

	// StateRekeying: established, but a new session_number has been
	// proposed and the new SESSION has not yet been confirmed both ways.
	StateRekeying

	// StateLost: no traffic for session_timeout, or repeated keep-alive
	// failures; the PeerSession is scheduled for destruction.
	StateLost
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateHelloSent:
		return "HELLO_SENT"
	case StatePresented:
		return "PRESENTED"
	case StateSessionRequested:
		return "SESSION_REQUESTED"
	case StateHalfEstablished:
		return "HALF_ESTABLISHED"
	case StateEstablished:
		return "ESTABLISHED"
	case StateRekeying:
		return "REKEYING"
	case StateLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// Established reports whether the data plane is currently usable: true in
// both StateEstablished and StateRekeying (rekeying still encrypts under
// the old keys until the new SESSION is confirmed both ways, spec §4.4.5).
func (s State) Established() bool {
	return s == StateEstablished || s == StateRekeying
}

// Role records which side sent SESSION_REQUEST first for the session
// currently being negotiated. It only matters for the simultaneous-request
// tie-break in spec §4.4.2 ("the side that sent SESSION_REQUEST with the
// higher session_number wins ties"); it has no bearing on key direction,
// since FSCP (unlike Matter's PASE/CASE) derives one key per direction
// rather than per initiator/responder role.
type Role int

const (
	RoleUnknown Role = iota
	RoleInitiator
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}
