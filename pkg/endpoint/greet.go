package endpoint

import (
	"context"
	"net"
	"time"

	"github.com/freelan-go/freelan/pkg/wire"
)

// Greet starts (or restarts) the handshake with a peer reachable at addr.
// It is idempotent for a peer already known at that address: a second call
// re-sends nothing, since Session.Greet is itself a no-op once the
// handshake has begun.
func (e *Endpoint) Greet(ctx context.Context, addr net.Addr) error {
	pc := e.getOrCreateByAddr(addr)
	pc.mu.Lock()
	if pc.greetSentAt.IsZero() {
		pc.greetSentAt = time.Now()
	}
	pc.mu.Unlock()
	return pc.session.Greet(ctx, pc.sender)
}

// Introduce asks the peer at via to look up introductions for the given
// certificate hashes on this Endpoint's behalf (spec §4.4.4's
// CONTACT_REQUEST). via must already have an established Session.
func (e *Endpoint) Introduce(ctx context.Context, via net.Addr, hashes [][wire.CertificateHashSize]byte) error {
	e.mu.RLock()
	pc, ok := e.byAddr[via.String()]
	e.mu.RUnlock()
	if !ok {
		return ErrUnknownPeer
	}
	return pc.session.SendContactRequest(ctx, hashes, pc.sender)
}
