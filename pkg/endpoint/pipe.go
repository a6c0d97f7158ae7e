package endpoint

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// NetworkCondition configures network behavior simulation for a Pipe, so
// the rekey-under-load and replay-protection properties (spec §8's S5
// and S2) can be exercised deterministically without real sockets.
type NetworkCondition struct {
	// DropRate is the probability of dropping a packet (0.0 - 1.0).
	DropRate float64

	// DelayMin is the minimum delay added to each packet.
	DelayMin time.Duration

	// DelayMax is the maximum delay added to each packet. The actual
	// delay is uniformly distributed between DelayMin and DelayMax.
	DelayMax time.Duration

	// DuplicateRate is the probability of duplicating a packet
	// (0.0 - 1.0), used to exercise the replay window.
	DuplicateRate float64

	// ReorderRate is the probability of reordering a packet (0.0 - 1.0).
	// Pipe does not apply it: packets are never reordered.
	ReorderRate float64

	// ReorderDelay is the additional delay for a reordered packet. Pipe
	// does not apply it.
	ReorderDelay time.Duration
}

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess enables automatic message delivery in a background
	// goroutine. Default true.
	AutoProcess bool

	// ProcessInterval is how often the auto-processor checks for
	// queued messages. Default 1ms.
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default Pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe provides bidirectional in-memory packet delivery between two
// virtual FSCP endpoints. It wraps pion's test.Bridge and layers network
// condition simulation on top, so the integration tests exercising
// spec §8's testable properties (S1-S6) run deterministically and
// without binding real UDP sockets.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.RWMutex
	condition       NetworkCondition
	closed          bool
	rng             *rand.Rand
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a bidirectional pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}
	if config.ProcessInterval == 0 {
		p.processInterval = 1 * time.Millisecond
	}
	if p.autoProcess {
		p.startAutoProcess()
	}
	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// SetAutoProcess enables or disables automatic message delivery. When
// disabled, call Tick or Process to drive delivery manually — useful
// for deterministic tests of specific packet orderings.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.autoProcess == enabled {
		return
	}
	p.autoProcess = enabled
	if enabled {
		p.stopCh = make(chan struct{})
		p.startAutoProcess()
	} else {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// AutoProcess reports whether auto-processing is enabled.
func (p *Pipe) AutoProcess() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoProcess
}

// SetCondition configures network condition simulation, applied to
// packets in both directions.
func (p *Pipe) SetCondition(cond NetworkCondition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.condition = cond
}

// Condition returns the current network condition configuration.
func (p *Pipe) Condition() NetworkCondition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.condition
}

// Conn0 returns the connection for endpoint 0.
func (p *Pipe) Conn0() net.Conn { return p.bridge.GetConn0() }

// Conn1 returns the connection for endpoint 1.
func (p *Pipe) Conn1() net.Conn { return p.bridge.GetConn1() }

// Tick delivers one queued packet in each direction, if available, and
// returns the number delivered (0, 1, or 2). Unneeded when AutoProcess
// is enabled.
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers every currently queued packet and returns the count.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			break
		}
		count += n
	}
	return count
}

// Close closes both endpoints of the pipe and stops auto-processing.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()

	var firstErr error
	if err := p.bridge.GetConn0().Close(); err != nil {
		firstErr = err
	}
	if err := p.bridge.GetConn1().Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// PipeAddr implements net.Addr for pipe endpoints.
type PipeAddr struct {
	ID   int // Endpoint ID (0 or 1).
	Port int // Logical FSCP port.
}

func (a PipeAddr) Network() string { return "pipe" }
func (a PipeAddr) String() string  { return fmt.Sprintf("pipe:%d:%d", a.ID, a.Port) }

// PipePacketConn wraps one side of a Pipe as a net.PacketConn, so it can
// stand in for a real UDP socket in udpLoop.
type PipePacketConn struct {
	conn     net.Conn
	localID  int
	port     int
	peerAddr net.Addr
	pipe     *Pipe
}

// ReadFrom reads a packet from the pipe; the reported address is always
// the single configured peer's address.
func (c *PipePacketConn) ReadFrom(b []byte) (n int, addr net.Addr, err error) {
	n, err = c.conn.Read(b)
	return n, c.peerAddr, err
}

// WriteTo writes a packet to the pipe, applying any configured
// NetworkCondition. addr is ignored: a pipe has exactly one peer.
func (c *PipePacketConn) WriteTo(b []byte, addr net.Addr) (n int, err error) {
	if c.pipe != nil {
		c.pipe.mu.RLock()
		cond := c.pipe.condition
		rng := c.pipe.rng
		c.pipe.mu.RUnlock()

		if cond.DropRate > 0 && rng.Float64() < cond.DropRate {
			return len(b), nil
		}
		if cond.DelayMax > 0 {
			delay := cond.DelayMin
			if cond.DelayMax > cond.DelayMin {
				delay += time.Duration(rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
		if cond.DuplicateRate > 0 && rng.Float64() < cond.DuplicateRate {
			if _, err := c.conn.Write(b); err != nil {
				return 0, err
			}
		}
	}
	return c.conn.Write(b)
}

func (c *PipePacketConn) Close() error { return c.conn.Close() }

func (c *PipePacketConn) LocalAddr() net.Addr {
	return PipeAddr{ID: c.localID, Port: c.port}
}

func (c *PipePacketConn) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *PipePacketConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *PipePacketConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

var _ net.PacketConn = (*PipePacketConn)(nil)

// PipeConnPair wires two PipePacketConns to the same Pipe, one per
// side, for use in place of two real UDP sockets in a two-node
// integration test.
type PipeConnPair struct {
	pipe        *Pipe
	conn0, conn1 *PipePacketConn
}

// NewPipeConnPair creates a connected pair with auto-processing enabled.
func NewPipeConnPair(port0, port1 int) *PipeConnPair {
	return NewPipeConnPairWithConfig(DefaultPipeConfig(), port0, port1)
}

// NewPipeConnPairWithConfig creates a connected pair with the given
// Pipe configuration.
func NewPipeConnPairWithConfig(config PipeConfig, port0, port1 int) *PipeConnPair {
	pipe := NewPipeWithConfig(config)
	p := &PipeConnPair{pipe: pipe}
	p.conn0 = &PipePacketConn{
		conn: pipe.Conn0(), localID: 0, port: port0,
		peerAddr: PipeAddr{ID: 1, Port: port1}, pipe: pipe,
	}
	p.conn1 = &PipePacketConn{
		conn: pipe.Conn1(), localID: 1, port: port1,
		peerAddr: PipeAddr{ID: 0, Port: port0}, pipe: pipe,
	}
	return p
}

// Pipe returns the underlying Pipe, for SetCondition/Process/Tick.
func (p *PipeConnPair) Pipe() *Pipe { return p.pipe }

// Conn0 returns the net.PacketConn for side 0.
func (p *PipeConnPair) Conn0() net.PacketConn { return p.conn0 }

// Conn1 returns the net.PacketConn for side 1.
func (p *PipeConnPair) Conn1() net.PacketConn { return p.conn1 }
