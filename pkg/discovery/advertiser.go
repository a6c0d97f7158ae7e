package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// MDNSServer is the interface for an active mDNS service registration.
// This allows for dependency injection in tests.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// AdvertiserConfig holds configuration for the Advertiser.
type AdvertiserConfig struct {
	// HostName is the mDNS instance name. If empty, the hex-encoded
	// certificate hash passed to Start is used.
	HostName string
	// Port is the FSCP port to advertise (default DefaultPort).
	Port int
	// Interfaces restricts advertising to specific interfaces. Nil
	// advertises on all of them.
	Interfaces []net.Interface
	// ServerFactory creates the underlying mDNS registration. Nil uses
	// grandcat/zeroconf.
	ServerFactory MDNSServerFactory
	// LoggerFactory builds the advertiser's logger. Nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes this node's "_freelan._udp" record to the LAN, so
// that other FSCP nodes can find it without a static configured address
// (spec §4.4.4's CONTACT sub-protocol still does the actual
// introduction once two nodes are in a session together; this package
// only helps them find each other in the first place).
type Advertiser struct {
	config  AdvertiserConfig
	factory MDNSServerFactory
	log     logging.LeveledLogger

	mu      sync.Mutex
	server  MDNSServer
	started bool
	closed  bool
}

// NewAdvertiser creates an Advertiser with the given configuration.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	if config.Port <= 0 || config.Port > 65535 {
		config.Port = DefaultPort
	}
	factory := config.ServerFactory
	if factory == nil {
		factory = &zeroconfServerFactory{}
	}
	a := &Advertiser{config: config, factory: factory}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a
}

// Start begins advertising certHash (and the FSCP wire version) under
// ServiceFreelan. It fails with ErrAlreadyStarted if already advertising.
func (a *Advertiser) Start(certHash [32]byte, version uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.started {
		return ErrAlreadyStarted
	}

	instance := a.config.HostName
	if instance == "" {
		instance = fmt.Sprintf("%x", certHash[:8])
	}
	txt := PeerTXT{CertHash: certHash, Version: version}.Encode()

	if a.log != nil {
		a.log.Debugf("advertising %s as %s on port %d", ServiceFreelan, instance, a.config.Port)
	}
	server, err := a.factory.Register(instance, ServiceFreelan, DefaultDomain, a.config.Port, txt, a.config.Interfaces)
	if err != nil {
		return fmt.Errorf("discovery: register failed: %w", err)
	}
	a.server = server
	a.started = true
	return nil
}

// Stop withdraws the advertisement. It returns ErrNotStarted if not
// currently advertising.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if !a.started {
		return ErrNotStarted
	}
	a.server.Shutdown()
	a.server = nil
	a.started = false
	return nil
}

// IsAdvertising reports whether Start has succeeded without a matching Stop.
func (a *Advertiser) IsAdvertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// Close stops advertising (if active) and marks the Advertiser unusable.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.started {
		a.server.Shutdown()
		a.server = nil
		a.started = false
	}
	a.closed = true
	return nil
}
