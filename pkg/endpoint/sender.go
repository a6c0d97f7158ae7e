package endpoint

import (
	"context"
	"net"

	"github.com/freelan-go/freelan/pkg/wire"
)

// udpSender binds one peer.Sender to a fixed transport address, so a
// Session can transmit without ever holding a reference back to the
// Endpoint that owns it or to the shared socket's address book (spec §9).
type udpSender struct {
	conn net.PacketConn
	addr net.Addr
}

func (u *udpSender) Send(ctx context.Context, payload []byte) error {
	if len(payload) > wire.MaxMTU {
		return ErrMessageTooLarge
	}
	_, err := u.conn.WriteTo(payload, u.addr)
	return err
}
