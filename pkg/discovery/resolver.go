package discovery

import (
	"context"
	"encoding/hex"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
)

// ResolvedPeer is a discovered FSCP node: enough to attempt a greet.
type ResolvedPeer struct {
	// InstanceName is the DNS-SD instance name the peer advertised under.
	InstanceName string
	// HostName is the peer's mDNS target host name.
	HostName string
	// Port is the FSCP port to connect to.
	Port int
	// IPs are the peer's resolved addresses, most-reachable first (see
	// SortIPsByPreference).
	IPs []net.IP
	// CertHash is the peer's certificate hash, decoded from its TXT
	// record. A Resolver caller uses this to recognize a peer it
	// already knows, or to decide whether to attempt a greet.
	CertHash [32]byte
	// Version is the FSCP wire version the peer advertised.
	Version uint8
}

// PreferredIP returns the most preferred resolved address, or nil.
func (r *ResolvedPeer) PreferredIP() net.IP {
	if len(r.IPs) == 0 {
		return nil
	}
	return r.IPs[0]
}

// MDNSResolver is the interface for mDNS service resolution. This allows
// for dependency injection in tests.
type MDNSResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

type zeroconfResolver struct {
	resolver *zeroconf.Resolver
}

func newZeroconfResolver() (*zeroconfResolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return &zeroconfResolver{resolver: r}, nil
}

func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Browse(ctx, service, domain, entries)
}

func (z *zeroconfResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Lookup(ctx, instance, service, domain, entries)
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// MDNSResolver is the underlying mDNS resolver. Nil uses zeroconf.
	MDNSResolver MDNSResolver
	// BrowseTimeout bounds Browse when ctx carries no deadline. Zero
	// uses DefaultBrowseTimeout.
	BrowseTimeout time.Duration
	// LookupTimeout bounds Lookup when ctx carries no deadline. Zero
	// uses DefaultLookupTimeout.
	LookupTimeout time.Duration
}

// Resolver discovers other FSCP nodes advertising ServiceFreelan.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
}

// NewResolver creates a Resolver with the given configuration.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := newZeroconfResolver()
		if err != nil {
			return nil, err
		}
		resolver = zr
	}
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}
	return &Resolver{config: config, resolver: resolver}, nil
}

// Browse discovers every FSCP node currently advertising on the LAN. The
// returned channel closes when ctx is done or the browse timeout (if ctx
// carries no deadline) elapses. Entries with an undecodable or missing
// TXT record are silently skipped.
func (r *Resolver) Browse(ctx context.Context) (<-chan ResolvedPeer, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.BrowseTimeout)
		_ = cancel // results goroutine owns cancellation via ctx.Done()
	}

	results := make(chan ResolvedPeer)
	entries := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(results)
		go func() {
			defer close(entries)
			r.resolver.Browse(ctx, ServiceFreelan, DefaultDomain, entries)
		}()
		for entry := range entries {
			peer, ok := entryToResolvedPeer(entry)
			if !ok {
				continue
			}
			select {
			case results <- peer:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results, nil
}

// Lookup resolves a specific advertised instance by its certificate
// hash's hex instance name (the same name Advertiser.Start derives when
// AdvertiserConfig.HostName is empty).
func (r *Resolver) Lookup(ctx context.Context, certHash [32]byte) (*ResolvedPeer, error) {
	instance := hex.EncodeToString(certHash[:8])

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.LookupTimeout)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		defer close(entries)
		r.resolver.Lookup(ctx, instance, ServiceFreelan, DefaultDomain, entries)
	}()

	select {
	case entry, ok := <-entries:
		if !ok || entry == nil {
			return nil, ErrServiceNotFound
		}
		peer, ok := entryToResolvedPeer(entry)
		if !ok {
			return nil, ErrInvalidTXTRecord
		}
		return &peer, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func entryToResolvedPeer(entry *zeroconf.ServiceEntry) (ResolvedPeer, bool) {
	txt, err := DecodePeerTXT(entry.Text)
	if err != nil {
		return ResolvedPeer{}, false
	}
	var allIPs []net.IP
	allIPs = append(allIPs, entry.AddrIPv6...)
	allIPs = append(allIPs, entry.AddrIPv4...)
	return ResolvedPeer{
		InstanceName: entry.Instance,
		HostName:     entry.HostName,
		Port:         entry.Port,
		IPs:          SortIPsByPreference(allIPs),
		CertHash:     txt.CertHash,
		Version:      txt.Version,
	}, true
}
