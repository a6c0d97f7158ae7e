package peer

import "time"

// Default timing parameters for a PeerSession, per spec §4.4.3-§4.4.6.
const (
	// DefaultHelloTimeout is the default for Params.HelloTimeout. Session
	// does not read that field: HELLO_REQUEST retransmission and give-up
	// follow Params.Backoff alone.
	DefaultHelloTimeout = 3 * time.Second

	// DefaultRekeyThreshold is the local_sequence_number value that
	// triggers a rekey (spec §4.4.5). 2^28 leaves a wide safety margin
	// below the 32-bit sequence number space.
	DefaultRekeyThreshold uint32 = 1 << 28

	// DefaultMaxSessionAge triggers a rekey on elapsed time even if the
	// sequence number threshold has not been reached.
	DefaultMaxSessionAge = 5 * time.Minute

	// DefaultKeepAlivePeriod is how long a PeerSession waits with no
	// outbound traffic before sending a KEEP_ALIVE (spec §4.4.3).
	DefaultKeepAlivePeriod = 10 * time.Second

	// DefaultSessionTimeout is how long a PeerSession waits with no
	// received traffic at all before declaring itself lost.
	DefaultSessionTimeout = 6 * DefaultKeepAlivePeriod

	// DefaultContactValidity is how long a CONTACT candidate endpoint is
	// trusted before it is discarded as stale (spec §4.4.4).
	DefaultContactValidity = 3 * time.Minute
)

// Params holds the timing parameters governing one PeerSession's pacing.
// Values are copied from Endpoint configuration at PeerSession creation;
// zero fields are replaced by their defaults via WithDefaults.
type Params struct {
	// HelloTimeout is carried in Params but not read by Session; the
	// HELLO_REQUEST/HELLO_RESPONSE round trip is paced by Backoff.
	HelloTimeout time.Duration

	// RekeyThreshold is the local_sequence_number value that triggers a
	// rekey.
	RekeyThreshold uint32

	// MaxSessionAge triggers a rekey on elapsed wall-clock time.
	MaxSessionAge time.Duration

	// KeepAlivePeriod is the idle-outbound duration that triggers a
	// KEEP_ALIVE.
	KeepAlivePeriod time.Duration

	// SessionTimeout is the idle-inbound duration that declares the
	// session lost.
	SessionTimeout time.Duration

	// ContactValidity bounds how long a CONTACT candidate is trusted.
	ContactValidity time.Duration

	// Backoff governs handshake retransmission pacing (spec §4.4.6).
	Backoff BackoffParams
}

// DefaultParams returns the spec-recommended defaults.
func DefaultParams() Params {
	return Params{
		HelloTimeout:    DefaultHelloTimeout,
		RekeyThreshold:  DefaultRekeyThreshold,
		MaxSessionAge:   DefaultMaxSessionAge,
		KeepAlivePeriod: DefaultKeepAlivePeriod,
		SessionTimeout:  DefaultSessionTimeout,
		ContactValidity: DefaultContactValidity,
		Backoff:         DefaultBackoffParams(),
	}
}

// WithDefaults returns a copy of p with zero-valued fields replaced by
// DefaultParams' values.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.HelloTimeout == 0 {
		p.HelloTimeout = d.HelloTimeout
	}
	if p.RekeyThreshold == 0 {
		p.RekeyThreshold = d.RekeyThreshold
	}
	if p.MaxSessionAge == 0 {
		p.MaxSessionAge = d.MaxSessionAge
	}
	if p.KeepAlivePeriod == 0 {
		p.KeepAlivePeriod = d.KeepAlivePeriod
	}
	if p.SessionTimeout == 0 {
		p.SessionTimeout = d.SessionTimeout
	}
	if p.ContactValidity == 0 {
		p.ContactValidity = d.ContactValidity
	}
	if p.Backoff == (BackoffParams{}) {
		p.Backoff = d.Backoff
	}
	return p
}
