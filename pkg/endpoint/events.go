package endpoint

import (
	"time"

	"github.com/freelan-go/freelan/pkg/router"
)

// EventKind identifies the kind of occurrence an Event reports.
type EventKind int

const (
	// EventPeerEstablished fires the first time a peer's Session reaches
	// StateEstablished.
	EventPeerEstablished EventKind = iota

	// EventPeerLost fires when a peer's Session transitions to StateLost,
	// after the Endpoint has removed it from its peer maps.
	EventPeerLost

	// EventHelloCompleted fires alongside EventPeerEstablished for a peer
	// this Endpoint Greeted, carrying in RTT the time from the first Greet
	// call to establishment. A Greeted handshake that ends in StateLost
	// produces EventPeerLost only; no EventHelloCompleted reports it.
	EventHelloCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventPeerEstablished:
		return "peer_established"
	case EventPeerLost:
		return "peer_lost"
	case EventHelloCompleted:
		return "hello_completed"
	default:
		return "unknown"
	}
}

// Event is one notable occurrence an Endpoint reports to its owner. Events
// are delivered on a buffered channel rather than run inline on a Session's
// task-queue goroutine, so a slow consumer cannot stall the handshake or
// data plane; when the channel is full the new event is dropped.
type Event struct {
	Kind EventKind

	// Addr is the peer's transport address, always present.
	Addr string

	// PeerID is the peer's certificate hash, or the zero value when no
	// PRESENTATION has been received from the peer (as in PSK mode).
	PeerID router.PeerID

	// RTT is populated for EventHelloCompleted.
	RTT time.Duration

	// Err explains a non-nil outcome; nil on success.
	Err error

	At time.Time
}

// emit delivers ev without blocking: a full events channel drops the event
// rather than stall the caller, which may be running on a Session's own
// task-queue goroutine.
func (e *Endpoint) emit(ev Event) {
	ev.At = time.Now()
	select {
	case e.events <- ev:
	default:
		if e.log != nil {
			e.log.Warnf("endpoint.event_dropped", "events channel full, dropped %s for %s", ev.Kind, ev.Addr)
		}
	}
}

// Events returns the channel Events are delivered on. The channel is closed
// by Close.
func (e *Endpoint) Events() <-chan Event { return e.events }
