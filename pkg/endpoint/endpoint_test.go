package endpoint

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/freelan-go/freelan/pkg/certvalidator"
	"github.com/freelan-go/freelan/pkg/tap"
	"github.com/freelan-go/freelan/pkg/wire"
)

// genIdentity builds a self-signed RSA certificate for use as one node's
// PRESENTATION payload in tests, exactly as pkg/peer's own tests do.
func genIdentity(t *testing.T, name string) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
		KeyUsage:     x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("x509.CreateCertificate: %v", err)
	}
	return der, key
}

func hostID(b byte) [wire.HostIdentifierSize]byte {
	var id [wire.HostIdentifierSize]byte
	for i := range id {
		id[i] = b
	}
	return id
}

// testNode bundles one Endpoint with the loopback tap device backing it, so
// a test can inject/observe frames on the "kernel" side.
type testNode struct {
	ep *Endpoint
	lo *tap.Loopback
}

func newTestNode(t *testing.T, name string, hostIDByte byte, conn net.PacketConn, accept bool) *testNode {
	t.Helper()
	certDER, key := genIdentity(t, name)
	lo := tap.NewLoopback(net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, hostIDByte}, 1500, 16)
	ep := New(Config{
		LocalHostID:        hostID(hostIDByte),
		LocalCertDER:       certDER,
		PrivateKey:         key,
		CipherSuites:       []wire.CipherSuite{wire.CipherSuiteAES256GCMSHA256, wire.CipherSuiteAES128GCMSHA256},
		Curves:             []wire.EllipticCurve{wire.CurveSecp521r1, wire.CurveSecp384r1},
		Validator:          certvalidator.NewNonePolicy(),
		Tap:                lo,
		Conn:               conn,
		AcceptUnknownPeers: accept,
		TickInterval:       20 * time.Millisecond,
	})
	return &testNode{ep: ep, lo: lo}
}

func runNode(t *testing.T, n *testNode) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	n.ep.Start(ctx)
	t.Cleanup(cancel)
	return cancel
}

func waitForPeerCount(t *testing.T, ep *Endpoint, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(ep.Peers()) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d established peer(s), have %d", want, len(ep.Peers()))
}

func TestEndpointHandshakeEstablishesAndEmitsEvents(t *testing.T) {
	pair := NewPipeConnPair(12000, 12001)
	t.Cleanup(func() { pair.Pipe().Close() })

	a := newTestNode(t, "node-a", 0xAA, pair.Conn0(), true)
	b := newTestNode(t, "node-b", 0xBB, pair.Conn1(), true)
	runNode(t, a)
	runNode(t, b)

	bAddr := PipeAddr{ID: 1, Port: 12001}
	if err := a.ep.Greet(context.Background(), bAddr); err != nil {
		t.Fatalf("Greet: %v", err)
	}

	waitForPeerCount(t, a.ep, 1, 2*time.Second)
	waitForPeerCount(t, b.ep, 1, 2*time.Second)

	var sawEstablished, sawHello bool
	deadline := time.After(time.Second)
	for !sawEstablished || !sawHello {
		select {
		case ev := <-a.ep.Events():
			switch ev.Kind {
			case EventPeerEstablished:
				sawEstablished = true
			case EventHelloCompleted:
				sawHello = true
				if ev.RTT <= 0 {
					t.Fatalf("HelloCompleted RTT = %v, want > 0", ev.RTT)
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for events, established=%v hello=%v", sawEstablished, sawHello)
		}
	}
}

func TestEndpointTunnelsFrameAcrossEstablishedPeers(t *testing.T) {
	pair := NewPipeConnPair(12000, 12001)
	t.Cleanup(func() { pair.Pipe().Close() })

	a := newTestNode(t, "node-a", 0xAA, pair.Conn0(), true)
	b := newTestNode(t, "node-b", 0xBB, pair.Conn1(), true)
	runNode(t, a)
	runNode(t, b)

	bAddr := PipeAddr{ID: 1, Port: 12001}
	if err := a.ep.Greet(context.Background(), bAddr); err != nil {
		t.Fatalf("Greet: %v", err)
	}
	waitForPeerCount(t, a.ep, 1, 2*time.Second)
	waitForPeerCount(t, b.ep, 1, 2*time.Second)

	frame := make([]byte, 64)
	copy(frame[0:6], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}) // broadcast destination
	copy(frame[6:12], a.lo.HardwareAddress())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.lo.Deliver(ctx, frame); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	readBuf := make([]byte, 128)
	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	n, err := b.lo.Read(readCtx, readBuf)
	if err != nil {
		t.Fatalf("Read on b's tap: %v", err)
	}
	if string(readBuf[:n]) != string(frame) {
		t.Fatalf("frame mismatch: got %x, want %x", readBuf[:n], frame)
	}
}

func TestEndpointDropsHandshakeFromUnknownPeerWhenNotAccepting(t *testing.T) {
	pair := NewPipeConnPair(12000, 12001)
	t.Cleanup(func() { pair.Pipe().Close() })

	a := newTestNode(t, "node-a", 0xAA, pair.Conn0(), false)
	b := newTestNode(t, "node-b", 0xBB, pair.Conn1(), true)
	runNode(t, a)
	runNode(t, b)

	aAddr := PipeAddr{ID: 0, Port: 12000}
	if err := b.ep.Greet(context.Background(), aAddr); err != nil {
		t.Fatalf("Greet: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(a.ep.Peers()); got != 0 {
		t.Fatalf("a.Peers() = %d, want 0 (unsolicited handshake should have been rejected)", got)
	}
}
