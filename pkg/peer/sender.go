package peer

import (
	"context"
	"crypto/x509"
)

// Sender transmits one fully-encoded FSCP datagram to this Session's
// peer. Session is never handed a reference to the owning Endpoint or its
// socket; every call that needs to transmit takes a Sender instead, so
// Session cannot grow an ownership cycle back to the Endpoint that holds
// it (spec §9). In production the Endpoint itself implements Sender,
// bound to the one UDP address this Session was created for.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Callbacks are synchronous, in-process notifications from a Session to
// its owner, mirroring the teacher's plain callback-struct style for
// notifications that never need to cross a goroutine boundary. They run
// on the Session's own task-queue goroutine (see Run), so a callback must
// not block or call back into the Session it was invoked from.
type Callbacks struct {
	// OnStateChange fires whenever State changes.
	OnStateChange func(old, new State)

	// OnSessionError reports a recoverable failure (bad signature, replay,
	// capability mismatch) that dropped one message without tearing down
	// the session. Spec §4.3: cryptographic failures are silent to the
	// peer, but the local node still wants to observe them.
	OnSessionError func(err error)

	// OnEstablished fires the first time State reaches StateEstablished.
	OnEstablished func()

	// OnLost fires when State transitions to StateLost.
	OnLost func()

	// OnRemoteIdentity fires synchronously the moment this Session learns
	// its peer's certificate from PRESENTATION, before any session key is
	// negotiated. Unlike the other callbacks it carries a value rather
	// than just a transition, since peer identity is exactly the state an
	// owner needs before it can index a Session by anything other than
	// the address it was created for.
	OnRemoteIdentity func(cert *x509.Certificate)
}
