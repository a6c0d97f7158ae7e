package endpoint

import (
	"context"
	"errors"
	"time"

	"github.com/freelan-go/freelan/pkg/addr"
	"github.com/freelan-go/freelan/pkg/router"
	"github.com/freelan-go/freelan/pkg/wire"
)

// errFrameTooShort is returned by sourceMAC for a frame too small to carry
// an Ethernet header; such frames are simply not learned from, not dropped.
var errFrameTooShort = errors.New("endpoint: frame too short to carry a source MAC")

// sourceMAC extracts the 6-byte source address from an Ethernet frame (the
// second 6 bytes, immediately after the destination address).
func sourceMAC(frame []byte) (addr.EthernetAddress, error) {
	if len(frame) < 12 {
		return addr.EthernetAddress{}, errFrameTooShort
	}
	var mac addr.EthernetAddress
	copy(mac[:], frame[6:12])
	return mac, nil
}

// DefaultTunnelChannel is the DATA channel tap-originated frames are sent
// on; channels 1-14 are reserved for future multiplexing and unused here
// (spec's channel field, §4.1).
const DefaultTunnelChannel uint8 = 0

// tapLoop reads frames off the local network device and forwards each to
// whichever established peers the Router selects. A send failure here is
// backpressure on a DATA channel, which the protocol allows to drop rather
// than block the tap read loop (spec §5): it is logged and the loop moves
// on to the next frame.
func (e *Endpoint) tapLoop(ctx context.Context) {
	mtu := e.tapDev.MTU()
	if mtu <= 0 {
		mtu = wire.MaxMTU
	}
	buf := make([]byte, mtu)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := e.tapDev.Read(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if e.log != nil {
				e.log.Warnf("endpoint.tap_read_error", "%v", err)
			}
			continue
		}
		frame := append([]byte(nil), buf[:n]...)
		e.forwardTapFrame(ctx, frame)
	}
}

func (e *Endpoint) forwardTapFrame(ctx context.Context, frame []byte) {
	now := time.Now()
	peers := e.establishedPeerIDs()

	targets, err := e.router.SelectForTapFrame(frame, peers, now)
	if err != nil {
		if e.log != nil {
			e.log.Debugf("endpoint.tap_frame_error", "%v", err)
		}
		return
	}

	for _, id := range targets {
		e.sendDataTo(ctx, id, frame)
	}
}

func (e *Endpoint) establishedPeerIDs() []router.PeerID {
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

func (e *Endpoint) sendDataTo(ctx context.Context, id router.PeerID, frame []byte) {
	e.mu.RLock()
	pc, ok := e.byHash[id]
	e.mu.RUnlock()
	if !ok {
		return
	}
	if err := pc.session.SendData(ctx, DefaultTunnelChannel, frame, pc.sender); err != nil {
		if e.log != nil {
			e.log.Debugf("endpoint.tap_send_dropped", "%s: %v", pc.addr, err)
		}
	}
}

// onPeerFrame handles a decrypted DATA payload from a peer on the tunnel
// channel: it learns the source Ethernet address for switch-mode
// forwarding, writes the frame to the tap device, and relays it on to other
// peers if relay mode is enabled (spec's relay toggle).
func (e *Endpoint) onPeerFrame(pc *peerConn, channel uint8, plaintext []byte) {
	pc.mu.Lock()
	hash, hasHash := pc.hash, pc.hasHash
	pc.mu.Unlock()

	now := time.Now()
	if hasHash {
		if srcMAC, err := sourceMAC(plaintext); err == nil {
			e.router.Learn(srcMAC, hash, now)
		}
	}

	if _, err := e.tapDev.Write(e.runCtx, plaintext); err != nil && e.log != nil {
		e.log.Warnf("endpoint.tap_write_error", "%v", err)
	}

	if !hasHash || !e.router.Relay() {
		return
	}
	peers := e.establishedPeerIDs()
	targets, err := e.router.SelectForPeerFrame(plaintext, hash, peers, now)
	if err != nil {
		return
	}
	for _, id := range targets {
		e.sendDataTo(e.runCtx, id, plaintext)
	}
}
