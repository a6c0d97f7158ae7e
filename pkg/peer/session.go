package peer

import (
	"context"
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"math/rand"
	"sync"
	"time"

	"github.com/freelan-go/freelan/pkg/certvalidator"
	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
	"github.com/freelan-go/freelan/pkg/fscplog"
	"github.com/freelan-go/freelan/pkg/wire"
)

// AuthMode selects how handshake messages are authenticated (spec §6).
type AuthMode int

const (
	// AuthCertificate signs SESSION_REQUEST/SESSION with RSA-PSS under the
	// certificate exchanged in PRESENTATION.
	AuthCertificate AuthMode = iota

	// AuthPSK authenticates with HMAC-SHA-256 under a pre-shared key
	// instead, skipping certificate presentation entirely.
	AuthPSK
)

// ContactHooks let a Session participate in the contact introduction
// sub-protocol (spec §4.4.4) without knowing about any other peer itself;
// the owning Endpoint supplies the lookup and the follow-up action.
type ContactHooks struct {
	// ResolveHashes returns a CONTACT candidate for each hash in a
	// CONTACT_REQUEST that this node recognises. Unknown hashes are
	// silently omitted by returning fewer candidates than hashes.
	ResolveHashes func(hashes [][wire.CertificateHashSize]byte) []wire.ContactCandidate

	// OnContact is invoked with the candidates carried in a CONTACT reply,
	// so the Endpoint can greet newly learned addresses.
	OnContact func(candidates []wire.ContactCandidate)
}

// Config configures one Session for the lifetime of one remote peer.
type Config struct {
	LocalHostID  [wire.HostIdentifierSize]byte
	LocalCertDER []byte
	PrivateKey   *rsa.PrivateKey

	Mode AuthMode
	PSK  []byte

	CipherSuites []wire.CipherSuite
	Curves       []wire.EllipticCurve
	Validator    certvalidator.Validator

	Params Params
	Logger *fscplog.Logger

	Callbacks    Callbacks
	ContactHooks ContactHooks

	// OnFrame delivers a decrypted DATA payload for channels 0-14 (the
	// tunneled Ethernet frame channels); channel 15 is handled internally.
	OnFrame func(channel uint8, plaintext []byte)

	// OnFatal is a hook for conditions the Session cannot recover from on
	// its own. Session does not invoke it: a local signing failure is
	// reported through Callbacks.OnSessionError and leaves State unchanged.
	OnFatal func(err error)
}

func (c Config) withDefaults() Config {
	c.Params = c.Params.WithDefaults()
	if len(c.CipherSuites) == 0 {
		c.CipherSuites = []wire.CipherSuite{wire.CipherSuiteAES256GCMSHA256, wire.CipherSuiteAES128GCMSHA256}
	}
	if len(c.Curves) == 0 {
		c.Curves = []wire.EllipticCurve{wire.CurveSecp521r1, wire.CurveSecp384r1}
	}
	if c.Validator == nil {
		c.Validator = certvalidator.NewNonePolicy()
	}
	return c
}

func (c Config) sign(payload []byte) ([]byte, error) {
	if c.Mode == AuthPSK {
		mac := hmac.New(sha256.New, c.PSK)
		mac.Write(payload)
		return mac.Sum(nil), nil
	}
	return fcrypto.SignRSAPSS(c.PrivateKey, payload)
}

// keySet holds one generation's negotiated AEAD state: the session numbers
// it is valid under, the directional AEAD ciphers and nonce prefixes, the
// local send counter and the remote replay window (spec §4.3, §4.4.3).
type keySet struct {
	localSessionNumber  uint32
	remoteSessionNumber uint32
	cipher              wire.CipherSuite
	encrypt             *fcrypto.AEAD
	decrypt             *fcrypto.AEAD
	noncePrefixLocal    [8]byte
	noncePrefixRemote   [8]byte
	localSeq            uint32
	remoteWindow        replayWindow
	establishedAt       time.Time
}

// Session is the per-peer FSCP state machine (spec §4.4.1-§4.4.5). All
// handshake and data-plane work runs on the single goroutine draining
// tasks, so the fields below need no locking except statusMu, which
// guards the small slice of state status accessors may read from other
// goroutines.
type Session struct {
	cfg Config

	tasks chan func()
	done  chan struct{}
	once  sync.Once

	statusMu sync.Mutex
	state    State

	role Role

	remoteCert         *x509.Certificate
	remoteHostID       [wire.HostIdentifierSize]byte
	remoteCipherSuites []wire.CipherSuite
	remoteCurves       []wire.EllipticCurve

	sentPresentation bool
	helloUnique      uint32

	negotiatedCipher wire.CipherSuite
	negotiatedCurve  wire.EllipticCurve
	curve            ecdh.Curve
	ephemeral        *ecdh.PrivateKey

	current *keySet
	next    *keySet

	retransmitter *Retransmitter

	lastSentAt     time.Time
	lastReceivedAt time.Time

	localSessionNumber          uint32
	lastRemoteSessionNumber     uint32
	haveLastRemoteSessionNumber bool

	keepAliveCounter uint32
}

// NewSession builds a Session in StateUnknown, ready for either Greet (to
// initiate) or HandleMessage with an inbound HELLO_REQUEST (to respond).
func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:           cfg,
		tasks:         make(chan func(), 64),
		done:          make(chan struct{}),
		retransmitter: NewRetransmitter(cfg.Params.Backoff),
	}
}

// Run drains the task queue on the calling goroutine until ctx is
// cancelled or Close is called. Exactly one goroutine should call Run for
// a given Session.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		}
	}
}

// Submit enqueues fn to run on the Session's task-queue goroutine. It
// never blocks past Close.
func (s *Session) Submit(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.done:
	}
}

// Close stops the Session's retransmission timer and causes Run to
// return. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.retransmitter.Stop()
		close(s.done)
	})
}

// State returns the current handshake/rekey state. Safe to call from any
// goroutine.
func (s *Session) State() State {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.statusMu.Lock()
	prev := s.state
	s.state = next
	s.statusMu.Unlock()
	if prev == next {
		return
	}
	if s.cfg.Logger != nil {
		s.cfg.Logger.Infof("peer.state", "%s -> %s", prev, next)
	}
	if s.cfg.Callbacks.OnStateChange != nil {
		s.cfg.Callbacks.OnStateChange(prev, next)
	}
	if next == StateEstablished && prev != StateRekeying && s.cfg.Callbacks.OnEstablished != nil {
		s.cfg.Callbacks.OnEstablished()
	}
	if next == StateLost && s.cfg.Callbacks.OnLost != nil {
		s.cfg.Callbacks.OnLost()
	}
}

// reportError notifies Callbacks.OnSessionError and the logger, then
// returns err unchanged so callers can write "return s.reportError(err)".
func (s *Session) reportError(err error) error {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warnf("peer.error", "%v", err)
	}
	if s.cfg.Callbacks.OnSessionError != nil {
		s.cfg.Callbacks.OnSessionError(err)
	}
	return err
}

// verify checks a handshake message's signature under whichever
// authentication mode this Session is configured for.
func (s *Session) verify(payload, signature []byte) error {
	if s.cfg.Mode == AuthPSK {
		mac := hmac.New(sha256.New, s.cfg.PSK)
		mac.Write(payload)
		expected := mac.Sum(nil)
		if subtle.ConstantTimeCompare(expected, signature) != 1 {
			return ErrInvalidSignature
		}
		return nil
	}
	if s.remoteCert == nil {
		return ErrNoRemoteIdentity
	}
	pub, ok := s.remoteCert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return ErrNoRemoteIdentity
	}
	if err := fcrypto.VerifyRSAPSS(pub, payload, signature); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// RemoteCertificate returns the peer's certificate once PRESENTATION has
// been verified, or nil before then. Safe to call from any goroutine;
// the Endpoint uses it to learn a peer's certificate hash once a Session
// reaches StatePresented or later.
func (s *Session) RemoteCertificate() *x509.Certificate {
	resultCh := make(chan *x509.Certificate, 1)
	s.Submit(func() { resultCh <- s.remoteCert })
	select {
	case c := <-resultCh:
		return c
	case <-s.done:
		return nil
	}
}

// RemoteHostID returns the peer's most recently presented host
// identifier, or the zero value if no SESSION_REQUEST has been received
// yet. Safe to call from any goroutine.
func (s *Session) RemoteHostID() [wire.HostIdentifierSize]byte {
	resultCh := make(chan [wire.HostIdentifierSize]byte, 1)
	s.Submit(func() { resultCh <- s.remoteHostID })
	select {
	case h := <-resultCh:
		return h
	case <-s.done:
		return [wire.HostIdentifierSize]byte{}
	}
}

// nextLocalSessionNumber returns a session_number strictly greater than
// any this Session has previously sent, per the replay requirement of
// spec §4.4.2. The first value is randomized so two freshly-started nodes
// do not both begin at the same low number.
func (s *Session) nextLocalSessionNumber() uint32 {
	if s.localSessionNumber == 0 {
		s.localSessionNumber = rand.Uint32()>>1 + 1
		return s.localSessionNumber
	}
	s.localSessionNumber++
	if s.localSessionNumber == 0 {
		s.localSessionNumber = 1
	}
	return s.localSessionNumber
}
