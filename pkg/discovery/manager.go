package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
)

// ManagerConfig holds configuration shared by a Manager's Advertiser and
// Resolver.
type ManagerConfig struct {
	HostName      string
	Port          int
	Interfaces    []net.Interface
	BrowseTimeout time.Duration
	LookupTimeout time.Duration
	ServerFactory MDNSServerFactory
	MDNSResolver  MDNSResolver
	LoggerFactory logging.LoggerFactory
}

// Manager composes an Advertiser and a Resolver behind one lifecycle: an
// Endpoint holds one Manager to both announce itself and to bootstrap
// peers it has no static address for yet.
type Manager struct {
	advertiser *Advertiser
	resolver   *Resolver

	mu     sync.Mutex
	closed bool
}

// NewManager creates a Manager with the given configuration.
func NewManager(config ManagerConfig) (*Manager, error) {
	adv := NewAdvertiser(AdvertiserConfig{
		HostName:      config.HostName,
		Port:          config.Port,
		Interfaces:    config.Interfaces,
		ServerFactory: config.ServerFactory,
		LoggerFactory: config.LoggerFactory,
	})
	res, err := NewResolver(ResolverConfig{
		MDNSResolver:  config.MDNSResolver,
		BrowseTimeout: config.BrowseTimeout,
		LookupTimeout: config.LookupTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{advertiser: adv, resolver: res}, nil
}

// Advertise announces certHash under ServiceFreelan.
func (m *Manager) Advertise(certHash [32]byte, version uint8) error {
	if m.isClosed() {
		return ErrClosed
	}
	return m.advertiser.Start(certHash, version)
}

// StopAdvertising withdraws the announcement made by Advertise.
func (m *Manager) StopAdvertising() error {
	if m.isClosed() {
		return ErrClosed
	}
	return m.advertiser.Stop()
}

// IsAdvertising reports whether Advertise is currently in effect.
func (m *Manager) IsAdvertising() bool {
	if m.isClosed() {
		return false
	}
	return m.advertiser.IsAdvertising()
}

// Browse discovers FSCP nodes on the LAN.
func (m *Manager) Browse(ctx context.Context) (<-chan ResolvedPeer, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.Browse(ctx)
}

// Lookup resolves one peer by certificate hash.
func (m *Manager) Lookup(ctx context.Context, certHash [32]byte) (*ResolvedPeer, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.Lookup(ctx, certHash)
}

// Close stops advertising and marks the Manager unusable.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	if m.advertiser.IsAdvertising() {
		return m.advertiser.Close()
	}
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
