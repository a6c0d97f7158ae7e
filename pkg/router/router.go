// Package router implements the frame-forwarding decisions between the tap
// device and the set of established peers: learning-bridge switching, dumb
// hub flooding, and longest-prefix-match routing, plus the optional
// peer-to-peer relay toggle.
package router

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/freelan-go/freelan/pkg/addr"
)

// Mode selects how the Router picks recipients for a tap-originated frame.
type Mode int

const (
	// ModeSwitch forwards unicast frames to their learned peer and floods
	// everything else.
	ModeSwitch Mode = iota
	// ModeHub floods every frame to every established peer.
	ModeHub
	// ModeRouter forwards IP packets to the peer with the most specific
	// matching route, dropping unmatched packets.
	ModeRouter
)

func (m Mode) String() string {
	switch m {
	case ModeSwitch:
		return "switch"
	case ModeHub:
		return "hub"
	case ModeRouter:
		return "router"
	default:
		return "unknown"
	}
}

// DefaultLearningTTL is how long a learned Ethernet address stays valid
// without being refreshed by another frame from the same source.
const DefaultLearningTTL = 5 * time.Minute

const ethernetHeaderSize = 14

var (
	// ErrNotEthernetFrame is returned when a frame is too short to carry
	// an Ethernet header.
	ErrNotEthernetFrame = errors.New("router: frame too short to be an ethernet frame")
	// ErrNotIPPacket is returned when a packet is too short, or its
	// version nibble is neither 4 nor 6.
	ErrNotIPPacket = errors.New("router: packet is not a well-formed IPv4 or IPv6 packet")
)

// PeerID identifies a peer to the Router without coupling it to
// *peer.Session; callers key it however they already key their peer maps
// (FSCP naturally uses the peer's certificate hash).
type PeerID [32]byte

type learningEntry struct {
	peer    PeerID
	expires time.Time
}

type routeEntry struct {
	prefix netip.Prefix
	peer   PeerID
}

// Router holds the forwarding state for one Endpoint: the Ethernet learning
// table (switch mode), the IPv4/IPv6 route tables (router mode), and the
// relay toggle. All methods are safe for concurrent use.
type Router struct {
	mu    sync.RWMutex
	mode  Mode
	relay bool

	learningTTL time.Duration
	learned     map[addr.EthernetAddress]learningEntry

	ipv4Routes []routeEntry
	ipv6Routes []routeEntry
}

// New creates a Router in the given mode. relay enables forwarding frames
// received from one peer on to other peers (spec's relay toggle, default
// off). A zero learningTTL uses DefaultLearningTTL.
func New(mode Mode, relay bool, learningTTL time.Duration) *Router {
	if learningTTL <= 0 {
		learningTTL = DefaultLearningTTL
	}
	return &Router{
		mode:        mode,
		relay:       relay,
		learningTTL: learningTTL,
		learned:     make(map[addr.EthernetAddress]learningEntry),
	}
}

func (r *Router) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

func (r *Router) SetMode(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
}

func (r *Router) Relay() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.relay
}

func (r *Router) SetRelay(relay bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relay = relay
}

// Learn records that srcMAC is reachable through peer, refreshing its TTL.
// The Endpoint calls this for every frame it decrypts from a peer before
// writing it to the tap device, never for tap-originated frames: the tap
// side has no PeerSession of its own to record.
func (r *Router) Learn(srcMAC addr.EthernetAddress, peer PeerID, now time.Time) {
	if srcMAC.IsBroadcast() || srcMAC.IsMulticast() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.learned[srcMAC] = learningEntry{peer: peer, expires: now.Add(r.learningTTL)}
}

// Prune discards learning-table entries whose TTL has expired. The Endpoint
// calls this periodically from its timer wheel; Learn/lookupLearned work
// correctly even if it never does, since expiry is also checked at lookup
// time.
func (r *Router) Prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for mac, e := range r.learned {
		if now.After(e.expires) {
			delete(r.learned, mac)
		}
	}
}

func (r *Router) lookupLearned(mac addr.EthernetAddress, now time.Time) (PeerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.learned[mac]
	if !ok || now.After(e.expires) {
		return PeerID{}, false
	}
	return e.peer, true
}

// AddRoute installs or replaces the route to prefix, directing matching
// packets to peer (router mode). IPv4 and IPv6 prefixes are kept in
// separate tables.
func (r *Router) AddRoute(prefix netip.Prefix, peer PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.routeTable(prefix.Addr())
	for i, e := range *table {
		if e.prefix == prefix {
			(*table)[i].peer = peer
			return
		}
	}
	*table = append(*table, routeEntry{prefix: prefix, peer: peer})
}

// RemoveRoute removes a previously installed route, if any.
func (r *Router) RemoveRoute(prefix netip.Prefix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.routeTable(prefix.Addr())
	for i, e := range *table {
		if e.prefix == prefix {
			*table = append((*table)[:i], (*table)[i+1:]...)
			return
		}
	}
}

func (r *Router) routeTable(a netip.Addr) *[]routeEntry {
	if a.Is4() {
		return &r.ipv4Routes
	}
	return &r.ipv6Routes
}

func (r *Router) lookupRoute(ip netip.Addr) (PeerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table := r.ipv4Routes
	if ip.Is6() {
		table = r.ipv6Routes
	}
	var best routeEntry
	found := false
	for _, e := range table {
		if e.prefix.Contains(ip) && (!found || e.prefix.Bits() > best.prefix.Bits()) {
			best, found = e, true
		}
	}
	return best.peer, found
}

// SelectForTapFrame decides which of the currently established peers should
// receive a raw frame read from the tap device. In switch mode, frame is an
// Ethernet frame; in router mode, frame is a bare IPv4 or IPv6 packet. peers
// is the caller's current set of established peers eligible for flooding.
func (r *Router) SelectForTapFrame(frame []byte, peers []PeerID, now time.Time) ([]PeerID, error) {
	switch r.Mode() {
	case ModeHub:
		return peers, nil
	case ModeSwitch:
		dst, err := destinationMAC(frame)
		if err != nil {
			return nil, err
		}
		if dst.IsBroadcast() || dst.IsMulticast() {
			return peers, nil
		}
		if peer, ok := r.lookupLearned(dst, now); ok {
			return []PeerID{peer}, nil
		}
		return peers, nil
	case ModeRouter:
		dst, err := destinationIP(frame)
		if err != nil {
			return nil, err
		}
		if peer, ok := r.lookupRoute(dst); ok {
			return []PeerID{peer}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// SelectForPeerFrame decides whether a frame just decrypted from source
// should also be relayed on to other peers, in addition to always being
// written to the tap device (the caller's responsibility, not this one).
// It returns no targets unless relay mode is enabled, in which case it
// applies the same selection rules as SelectForTapFrame, excluding source.
func (r *Router) SelectForPeerFrame(frame []byte, source PeerID, peers []PeerID, now time.Time) ([]PeerID, error) {
	if !r.Relay() {
		return nil, nil
	}
	others := make([]PeerID, 0, len(peers))
	for _, p := range peers {
		if p != source {
			others = append(others, p)
		}
	}
	return r.SelectForTapFrame(frame, others, now)
}

func destinationMAC(frame []byte) (addr.EthernetAddress, error) {
	if len(frame) < ethernetHeaderSize {
		return addr.EthernetAddress{}, ErrNotEthernetFrame
	}
	var mac addr.EthernetAddress
	copy(mac[:], frame[0:6])
	return mac, nil
}

func destinationIP(packet []byte) (netip.Addr, error) {
	if len(packet) < 1 {
		return netip.Addr{}, ErrNotIPPacket
	}
	switch packet[0] >> 4 {
	case 4:
		if len(packet) < 20 {
			return netip.Addr{}, ErrNotIPPacket
		}
		return netip.AddrFrom4([4]byte(packet[16:20])), nil
	case 6:
		if len(packet) < 40 {
			return netip.Addr{}, ErrNotIPPacket
		}
		return netip.AddrFrom16([16]byte(packet[24:40])), nil
	default:
		return netip.Addr{}, ErrNotIPPacket
	}
}
