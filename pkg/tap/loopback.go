package tap

import (
	"context"
	"net"
	"sync"
)

// Loopback is an in-memory Device for tests: frames written to it are
// queued for Read, exactly as a userspace test harness would observe
// frames a real TAP adapter echoed back, without touching any platform
// networking API.
type Loopback struct {
	hwAddr net.HardwareAddr
	mtu    int

	mu        sync.Mutex
	closed    bool
	connected bool
	queue     chan []byte
	cfg       Configuration
}

// NewLoopback creates a Loopback device with the given hardware address
// and MTU, and a frame queue of the given depth.
func NewLoopback(hwAddr net.HardwareAddr, mtu, queueDepth int) *Loopback {
	return &Loopback{
		hwAddr: hwAddr,
		mtu:    mtu,
		queue:  make(chan []byte, queueDepth),
	}
}

// Deliver injects a frame as if it had arrived from the kernel side of the
// device, making it available to the next Read. It returns ErrClosed once
// the device has been closed.
func (l *Loopback) Deliver(ctx context.Context, frame []byte) error {
	cp := append([]byte(nil), frame...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.queue <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loopback) Read(ctx context.Context, buf []byte) (int, error) {
	select {
	case frame, ok := <-l.queue:
		if !ok {
			return 0, ErrClosed
		}
		return copy(buf, frame), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Write loops the frame back onto the queue, so a test harness reading
// from the "network" side of a Loopback observes what was written.
func (l *Loopback) Write(ctx context.Context, frame []byte) (int, error) {
	if err := l.Deliver(ctx, frame); err != nil {
		return 0, err
	}
	return len(frame), nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.queue)
	return nil
}

func (l *Loopback) MTU() int { return l.mtu }

func (l *Loopback) HardwareAddress() net.HardwareAddr { return l.hwAddr }

func (l *Loopback) SetConnectedState(up bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = up
	return nil
}

func (l *Loopback) Configure(cfg Configuration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	if cfg.MTU != 0 {
		l.mtu = cfg.MTU
	}
	return nil
}
