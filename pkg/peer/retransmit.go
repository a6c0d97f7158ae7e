package peer

import (
	"sync"
	"time"
)

// Retransmitter tracks the single handshake message (HELLO, PRESENTATION,
// SESSION_REQUEST or SESSION) a PeerSession has outstanding at any time.
// Unlike a general-purpose reliable-messaging layer, FSCP's handshake is
// strictly sequential per peer (spec §4.4.1), so there is never more than
// one message in flight; a single pending slot replaces a keyed table.
type Retransmitter struct {
	mu        sync.Mutex
	backoff   *BackoffCalculator
	message   []byte
	attempt   int
	timer     *time.Timer
	onTimeout func(message []byte, attempt int)
}

// NewRetransmitter builds a retransmitter using params' backoff schedule.
func NewRetransmitter(params BackoffParams) *Retransmitter {
	return &Retransmitter{backoff: NewBackoffCalculator(params, nil)}
}

// Start records message as the outstanding handshake send and arms the
// first retransmission timer. onTimeout is invoked (from its own
// goroutine) each time the timer fires; the caller is responsible for
// calling Retry or Stop from within onTimeout.
func (r *Retransmitter) Start(message []byte, onTimeout func(message []byte, attempt int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.message = message
	r.attempt = 0
	r.onTimeout = onTimeout
	r.armLocked()
}

// Retry reports that a retransmission was just sent and arms the next
// timeout. It returns false and stops the retransmitter once the
// schedule's MaxAttempts has been reached (spec §4.4.6).
func (r *Retransmitter) Retry() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onTimeout == nil {
		return false
	}
	r.attempt++
	if r.attempt >= r.backoff.MaxAttempts() {
		r.stopLocked()
		return false
	}
	r.armLocked()
	return true
}

func (r *Retransmitter) armLocked() {
	delay := r.backoff.Calculate(r.attempt)
	message, attempt := r.message, r.attempt
	r.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		cb := r.onTimeout
		r.mu.Unlock()
		if cb != nil {
			cb(message, attempt)
		}
	})
}

// Stop cancels any pending retransmission. Called once the handshake
// message has been acknowledged by the expected reply.
func (r *Retransmitter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Retransmitter) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.onTimeout = nil
	r.message = nil
	r.attempt = 0
}

// Pending reports whether a handshake message is currently outstanding.
func (r *Retransmitter) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onTimeout != nil
}

// Attempt returns the number of retransmissions sent so far for the
// current outstanding message (0 immediately after Start).
func (r *Retransmitter) Attempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}
