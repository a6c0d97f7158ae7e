package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
)

func TestManagerAdvertiseAndLookup(t *testing.T) {
	mock := NewMockMDNSResolver()
	factory := &MockMDNSServerFactory{}
	hash := fcrypto.SHA256([]byte("node a"))

	m, err := NewManager(ManagerConfig{
		Port:          12000,
		ServerFactory: factory,
		MDNSResolver:  mock,
		LookupTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.Advertise(hash, 3); err != nil {
		t.Fatalf("Advertise: %v", err)
	}
	if !m.IsAdvertising() {
		t.Fatal("IsAdvertising() = false")
	}

	// Reflect the advertised record into the mock resolver, as a
	// production mDNS responder would across the wire.
	reg := factory.Last()
	mock.RegisterService(MockPeerService(hash, reg.Port, net.ParseIP("192.0.2.1")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	peer, err := m.Lookup(ctx, hash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if peer.CertHash != hash {
		t.Fatalf("CertHash mismatch")
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.IsAdvertising() {
		t.Fatal("IsAdvertising() = true after Close")
	}
	if err := m.Advertise(hash, 3); err != ErrClosed {
		t.Fatalf("Advertise after Close: got %v, want ErrClosed", err)
	}
}
