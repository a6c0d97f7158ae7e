package discovery

import (
	"context"
	"encoding/hex"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver is an in-memory MDNSResolver for tests, grounded on
// the teacher's mock resolver: it lets a test register service entries
// and have Browse/Lookup return them without touching the network.
type MockMDNSResolver struct {
	mu       sync.RWMutex
	services []*zeroconf.ServiceEntry
}

// NewMockMDNSResolver creates an empty mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{}
}

// RegisterService adds an entry that Browse/Lookup will return.
func (m *MockMDNSResolver) RegisterService(entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, entry)
}

// ClearServices removes every registered entry.
func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = nil
}

// Browse implements MDNSResolver.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	svcEntries := make([]*zeroconf.ServiceEntry, len(m.services))
	copy(svcEntries, m.services)
	m.mu.RUnlock()

	for _, entry := range svcEntries {
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Lookup implements MDNSResolver.
func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	svcEntries := make([]*zeroconf.ServiceEntry, len(m.services))
	copy(svcEntries, m.services)
	m.mu.RUnlock()

	for _, entry := range svcEntries {
		if entry.Instance == instance {
			select {
			case entries <- entry:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}
	}
	return nil
}

// MockPeerService builds a fake "_freelan._udp" entry advertising
// certHash from ip:port, for feeding into a MockMDNSResolver.
func MockPeerService(certHash [32]byte, port int, ip net.IP) *zeroconf.ServiceEntry {
	instance := hex.EncodeToString(certHash[:8])
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instance,
			Service:  ServiceFreelan,
			Domain:   DefaultDomain,
		},
		HostName: instance + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
		Text:     PeerTXT{CertHash: certHash, Version: 3}.Encode(),
	}
}

// mockServer is the MDNSServer counterpart used by tests that exercise
// Advertiser.Start without binding real sockets.
type mockServer struct {
	shutdown func()
}

func (m *mockServer) Shutdown() {
	if m.shutdown != nil {
		m.shutdown()
	}
}

// MockMDNSServerFactory is an in-memory MDNSServerFactory for tests: it
// records every Register call instead of opening mDNS sockets.
type MockMDNSServerFactory struct {
	mu        sync.Mutex
	Registrations []MockRegistration
}

// MockRegistration captures one Register call's arguments.
type MockRegistration struct {
	Instance, Service, Domain string
	Port                      int
	TXT                       []string
}

func (f *MockMDNSServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	f.mu.Lock()
	f.Registrations = append(f.Registrations, MockRegistration{instance, service, domain, port, txt})
	f.mu.Unlock()
	return &mockServer{}, nil
}

// Last returns the most recent registration, or the zero value if none
// have happened yet.
func (f *MockMDNSServerFactory) Last() MockRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Registrations) == 0 {
		return MockRegistration{}
	}
	return f.Registrations[len(f.Registrations)-1]
}
