package endpoint

import (
	"context"
	"errors"
	"net"

	"github.com/freelan-go/freelan/pkg/wire"
)

// udpLoop reads datagrams off the transport socket and demuxes each to the
// peerConn for its source address, creating one for an unrecognised
// address only if it carries a HELLO_REQUEST and Config.AcceptUnknownPeers
// allows it. Every parse or dispatch failure is a "drop and log" condition
// (spec §4.1): nothing here ever surfaces to the sender.
func (e *Endpoint) udpLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		buf, err := e.pool.Get(wire.MaxMTU)
		if err != nil {
			if e.log != nil {
				e.log.Warnf("endpoint.udp_pool_exhausted", "%v", err)
			}
			continue
		}
		n, addr, err := e.conn.ReadFrom(buf.Bytes)
		if err != nil {
			buf.Release()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			if e.log != nil {
				e.log.Warnf("endpoint.udp_read_error", "%v", err)
			}
			continue
		}
		data := append([]byte(nil), buf.Bytes[:n]...)
		buf.Release()

		e.handleDatagram(ctx, addr, data)
	}
}

func (e *Endpoint) handleDatagram(ctx context.Context, addr net.Addr, data []byte) {
	parsed, err := wire.Parse(data)
	if err != nil {
		if e.log != nil {
			e.log.Debugf("endpoint.udp_parse_error", "%s: %v", addr, err)
		}
		return
	}

	e.mu.RLock()
	pc, ok := e.byAddr[addr.String()]
	e.mu.RUnlock()

	if !ok {
		if parsed.Type != wire.TypeHelloRequest || !e.cfg.AcceptUnknownPeers {
			if e.log != nil {
				e.log.Debugf("endpoint.udp_unknown_peer", "%s: %s", addr, parsed.Type)
			}
			return
		}
		pc = e.getOrCreateByAddr(addr)
	}

	if err := pc.session.HandleMessage(ctx, parsed.Type, parsed.Body, pc.sender); err != nil {
		if e.log != nil {
			e.log.Debugf("endpoint.udp_dispatch_error", "%s: %v", addr, err)
		}
	}
}
