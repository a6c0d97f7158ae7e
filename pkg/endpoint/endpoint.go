// Package endpoint wires together one FSCP node's UDP transport, its TAP
// device, the per-peer handshake/rekey state machines in pkg/peer and the
// forwarding decisions in pkg/router into a single running process.
//
// An Endpoint owns two address books for the peers it knows about: one
// keyed by transport address (the only thing known about an inbound
// datagram before a handshake completes) and one keyed by certificate hash
// (router.PeerID, populated once PRESENTATION identifies the peer). Neither
// *peer.Session nor *router.Router ever holds a reference back to the
// Endpoint; every call that needs to transmit or look something up is
// handed exactly what it needs for that one call (spec §9).
package endpoint

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/freelan-go/freelan/pkg/certvalidator"
	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
	"github.com/freelan-go/freelan/pkg/fscplog"
	"github.com/freelan-go/freelan/pkg/peer"
	"github.com/freelan-go/freelan/pkg/pool"
	"github.com/freelan-go/freelan/pkg/router"
	"github.com/freelan-go/freelan/pkg/tap"
	"github.com/freelan-go/freelan/pkg/wire"
)

// DefaultTickInterval is how often the timer loop drives Session.Tick and
// Router.Prune for every live peer.
const DefaultTickInterval = 1 * time.Second

// DefaultEventBuffer sizes the Events channel.
const DefaultEventBuffer = 64

// Config configures an Endpoint for the lifetime of one running node.
type Config struct {
	LocalHostID  [wire.HostIdentifierSize]byte
	LocalCertDER []byte
	PrivateKey   *rsa.PrivateKey

	Mode peer.AuthMode
	PSK  []byte

	CipherSuites []wire.CipherSuite
	Curves       []wire.EllipticCurve
	Validator    certvalidator.Validator

	Params peer.Params

	// RouterMode, Relay and LearningTTL configure the Router that picks
	// recipients for tap-originated frames; see pkg/router.
	RouterMode  router.Mode
	Relay       bool
	LearningTTL time.Duration

	// Pool supplies receive buffers for the UDP read loop. A nil Pool
	// gets pool.NewDefault().
	Pool *pool.Pool

	// PoolHeapFallback sets Pool.HeapFallback on a Pool this Endpoint
	// creates itself (a Pool passed in explicitly keeps whatever it was
	// already configured with). Off by default: an exhausted pool fails
	// the read instead of allocating unbounded heap memory under load.
	PoolHeapFallback bool

	// Tap is the local network device frames are read from and written
	// to. Required.
	Tap tap.Device

	// Conn is the transport socket: a real *net.UDPConn in production, or
	// a *endpoint.PipeConnPair side in tests. Required.
	Conn net.PacketConn

	// AcceptUnknownPeers allows a HELLO_REQUEST from an address with no
	// existing Session to create one, with this Endpoint responding as
	// RoleResponder. False restricts the Endpoint to peers it has
	// explicitly Greeted.
	AcceptUnknownPeers bool

	// TickInterval paces Session.Tick/Router.Prune calls. Zero uses
	// DefaultTickInterval.
	TickInterval time.Duration

	// EventBuffer sizes the Events channel. Zero uses DefaultEventBuffer.
	EventBuffer int

	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	if c.Pool == nil {
		c.Pool = pool.NewDefault()
		c.Pool.HeapFallback = c.PoolHeapFallback
	}
	if c.LearningTTL == 0 {
		c.LearningTTL = router.DefaultLearningTTL
	}
	return c
}

// peerConn is everything an Endpoint keeps for one remote peer: its
// Session, the Sender bound to its address, the goroutine draining its
// task queue, and the bookkeeping needed to emit Events and tear it down.
type peerConn struct {
	addr    net.Addr
	session *peer.Session
	sender  *udpSender

	cancel context.CancelFunc

	mu          sync.Mutex
	greetSentAt time.Time
	hash        router.PeerID
	hasHash     bool
}

// Endpoint is one running FSCP node.
type Endpoint struct {
	cfg    Config
	conn   net.PacketConn
	tapDev tap.Device
	pool   *pool.Pool
	router *router.Router
	log    *fscplog.Logger

	events chan Event

	mu     sync.RWMutex
	byAddr map[string]*peerConn
	byHash map[router.PeerID]*peerConn

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New builds an Endpoint. It does not start any goroutines; call Run.
func New(cfg Config) *Endpoint {
	cfg = cfg.withDefaults()
	cfg.Pool.SetLogger(fscplog.New(cfg.LoggerFactory, "pool", nil))
	return &Endpoint{
		cfg:    cfg,
		conn:   cfg.Conn,
		tapDev: cfg.Tap,
		pool:   cfg.Pool,
		router: router.New(cfg.RouterMode, cfg.Relay, cfg.LearningTTL),
		log:    fscplog.New(cfg.LoggerFactory, "endpoint", nil),
		events: make(chan Event, cfg.EventBuffer),
		byAddr: make(map[string]*peerConn),
		byHash: make(map[router.PeerID]*peerConn),
		runCtx: context.Background(),
	}
}

// Start launches the UDP read loop, the tap read loop and the timer loop and
// returns once they are running. It is split out from Run so a caller can
// start an Endpoint and immediately begin calling Greet/Introduce without
// racing Run's own goroutine against its scheduling; Run itself just calls
// Start and blocks.
func (e *Endpoint) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.runCtx = ctx
	e.cancel = cancel

	e.wg.Add(3)
	go func() { defer e.wg.Done(); e.udpLoop(ctx) }()
	go func() { defer e.wg.Done(); e.tapLoop(ctx) }()
	go func() { defer e.wg.Done(); e.timerLoop(ctx) }()
}

// Run starts the Endpoint and blocks until ctx is cancelled, returning
// ctx.Err() once every loop has exited.
func (e *Endpoint) Run(ctx context.Context) error {
	e.Start(ctx)
	<-e.runCtx.Done()
	e.wg.Wait()
	return e.runCtx.Err()
}

// Close stops every running loop, every peer Session, and closes the
// transport socket and the tap device. Safe to call more than once.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		e.mu.Lock()
		for _, pc := range e.byAddr {
			pc.session.Close()
			pc.cancel()
		}
		e.mu.Unlock()
		e.wg.Wait()
		close(e.events)
		if cerr := e.conn.Close(); cerr != nil {
			err = cerr
		}
		if e.tapDev != nil {
			if terr := e.tapDev.Close(); terr != nil && err == nil {
				err = terr
			}
		}
	})
	return err
}

// Router returns the Endpoint's frame-forwarding Router, for inspection or
// runtime reconfiguration (mode, relay, routes).
func (e *Endpoint) Router() *router.Router { return e.router }

// Peers returns the certificate hash of every peer whose Session is
// currently established (including StateRekeying).
func (e *Endpoint) Peers() []router.PeerID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]router.PeerID, 0, len(e.byHash))
	for id, pc := range e.byHash {
		if pc.session.State().Established() {
			ids = append(ids, id)
		}
	}
	return ids
}

// getOrCreateByAddr returns the existing peerConn for addr, or creates one
// (and starts its Session's task-queue goroutine) if none exists yet.
func (e *Endpoint) getOrCreateByAddr(addr net.Addr) *peerConn {
	key := addr.String()

	e.mu.Lock()
	if pc, ok := e.byAddr[key]; ok {
		e.mu.Unlock()
		return pc
	}
	pc := e.newPeerConnLocked(addr)
	e.byAddr[key] = pc
	e.mu.Unlock()
	return pc
}

// newPeerConnLocked builds a peerConn and starts its Session's Run
// goroutine. Callers must hold e.mu.
func (e *Endpoint) newPeerConnLocked(addr net.Addr) *peerConn {
	sender := &udpSender{conn: e.conn, addr: addr}
	pc := &peerConn{addr: addr, sender: sender}

	sessCtx, cancel := context.WithCancel(e.runCtx)
	pc.cancel = cancel

	pc.session = peer.NewSession(e.sessionConfig(pc))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		pc.session.Run(sessCtx)
	}()

	return pc
}

// sessionConfig builds the peer.Config for a new Session bound to pc,
// wiring its Callbacks and ContactHooks back to this Endpoint through
// closures rather than a stored Endpoint reference (spec §9).
func (e *Endpoint) sessionConfig(pc *peerConn) peer.Config {
	return peer.Config{
		LocalHostID:  e.cfg.LocalHostID,
		LocalCertDER: e.cfg.LocalCertDER,
		PrivateKey:   e.cfg.PrivateKey,
		Mode:         e.cfg.Mode,
		PSK:          e.cfg.PSK,
		CipherSuites: e.cfg.CipherSuites,
		Curves:       e.cfg.Curves,
		Validator:    e.cfg.Validator,
		Params:       e.cfg.Params,
		Logger:       fscplog.New(e.cfg.LoggerFactory, "peer", nil),
		Callbacks: peer.Callbacks{
			OnEstablished: func() {
				e.emitEstablished(pc)
			},
			OnLost: func() {
				e.teardownPeer(pc)
			},
			OnSessionError: func(err error) {
				if e.log != nil {
					e.log.Warnf("endpoint.session_error", "%s: %v", pc.addr, err)
				}
			},
			OnRemoteIdentity: func(cert *x509.Certificate) {
				e.registerHash(pc, cert)
			},
		},
		ContactHooks: peer.ContactHooks{
			ResolveHashes: e.resolveContactHashes,
			OnContact:     e.onContactCandidates,
		},
		OnFrame: func(channel uint8, plaintext []byte) {
			e.onPeerFrame(pc, channel, plaintext)
		},
		OnFatal: func(err error) {
			if e.log != nil {
				e.log.Errorf("endpoint.fatal", "%s: %v", pc.addr, err)
			}
		},
	}
}

// registerHash indexes pc by its peer's certificate hash, once PRESENTATION
// has identified it. Called from OnRemoteIdentity, which runs on pc's own
// Session goroutine but performs no blocking call back into the Session, so
// taking e.mu here is safe.
func (e *Endpoint) registerHash(pc *peerConn, cert *x509.Certificate) {
	hash := router.PeerID(fcrypto.SHA256(cert.Raw))
	pc.mu.Lock()
	pc.hash = hash
	pc.hasHash = true
	pc.mu.Unlock()

	e.mu.Lock()
	e.byHash[hash] = pc
	e.mu.Unlock()
}

func (e *Endpoint) emitEstablished(pc *peerConn) {
	pc.mu.Lock()
	hash, hasHash, sentAt := pc.hash, pc.hasHash, pc.greetSentAt
	pc.mu.Unlock()

	if hasHash {
		e.emit(Event{Kind: EventPeerEstablished, Addr: pc.addr.String(), PeerID: hash})
	} else {
		e.emit(Event{Kind: EventPeerEstablished, Addr: pc.addr.String()})
	}
	if !sentAt.IsZero() {
		e.emit(Event{
			Kind:   EventHelloCompleted,
			Addr:   pc.addr.String(),
			PeerID: hash,
			RTT:    time.Since(sentAt),
		})
	}
}

// teardownPeer removes pc from both address books and stops its Session
// goroutine. Called from OnLost, which runs on pc's own Session goroutine;
// cancelling pc's context here only takes effect once the current task
// returns, so this never races Session.Run itself.
func (e *Endpoint) teardownPeer(pc *peerConn) {
	pc.mu.Lock()
	hash, hasHash := pc.hash, pc.hasHash
	pc.mu.Unlock()

	e.mu.Lock()
	delete(e.byAddr, pc.addr.String())
	if hasHash {
		delete(e.byHash, hash)
	}
	e.mu.Unlock()

	e.emit(Event{Kind: EventPeerLost, Addr: pc.addr.String(), PeerID: hash})
	pc.session.Close()
	pc.cancel()
}

// resolveContactHashes answers a peer's CONTACT_REQUEST with the transport
// addresses of whichever requested certificate hashes this Endpoint
// currently knows about (spec §4.4.4).
func (e *Endpoint) resolveContactHashes(hashes [][wire.CertificateHashSize]byte) []wire.ContactCandidate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	candidates := make([]wire.ContactCandidate, 0, len(hashes))
	for _, h := range hashes {
		pc, ok := e.byHash[router.PeerID(h)]
		if !ok {
			continue
		}
		cand, ok := contactCandidateFor(h, pc.addr)
		if !ok {
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates
}

func contactCandidateFor(hash [wire.CertificateHashSize]byte, a net.Addr) (wire.ContactCandidate, bool) {
	udpAddr, ok := a.(*net.UDPAddr)
	if !ok {
		return wire.ContactCandidate{}, false
	}
	ip4 := udpAddr.IP.To4()
	if ip4 != nil {
		return wire.ContactCandidate{
			Hash:   hash,
			Family: wire.ContactFamilyIPv4,
			Addr:   append([]byte(nil), ip4...),
			Port:   uint16(udpAddr.Port),
		}, true
	}
	ip16 := udpAddr.IP.To16()
	if ip16 == nil {
		return wire.ContactCandidate{}, false
	}
	return wire.ContactCandidate{
		Hash:   hash,
		Family: wire.ContactFamilyIPv6,
		Addr:   append([]byte(nil), ip16...),
		Port:   uint16(udpAddr.Port),
	}, true
}

// onContactCandidates greets every candidate this Endpoint does not already
// have a Session for, learned from a peer's CONTACT reply (spec §4.4.4).
func (e *Endpoint) onContactCandidates(candidates []wire.ContactCandidate) {
	for _, cand := range candidates {
		if cand.Family.AddrSize() == 0 || len(cand.Addr) < cand.Family.AddrSize() {
			continue
		}
		addr := &net.UDPAddr{IP: append([]byte(nil), cand.Addr...), Port: int(cand.Port)}

		e.mu.RLock()
		_, known := e.byHash[router.PeerID(cand.Hash)]
		e.mu.RUnlock()
		if known {
			continue
		}
		go func(addr net.Addr) {
			_ = e.Greet(e.runCtx, addr)
		}(addr)
	}
}
