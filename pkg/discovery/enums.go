// Package discovery implements an optional LAN bootstrap for FSCP nodes
// over mDNS/DNS-SD: advertising a node's certificate hash and FSCP port
// as a "_freelan._udp" service, and resolving other nodes by that same
// hash. This complements, and never replaces, static greet(address)
// configuration and the in-band CONTACT introduction sub-protocol (spec
// §4.4.4) — it is LAN service discovery, not a NAT-traversal rendezvous
// service (spec's Non-goals exclude the latter).
//
// Grounded on the teacher's pkg/discovery, trimmed from Matter's three
// commissioning-oriented DNS-SD service types (commissionable,
// operational, commissioner — each carrying fabric/vendor/discriminator
// TXT semantics that have no FSCP analog) down to the single service
// type FSCP needs.
package discovery

import "time"

// ServiceFreelan is the DNS-SD service type FSCP nodes advertise
// themselves under.
const ServiceFreelan = "_freelan._udp"

// DefaultDomain is the default mDNS domain.
const DefaultDomain = "local."

// DefaultPort is the default FSCP port advertised when a node's
// configuration does not specify one explicitly (matches the endpoint
// examples used throughout spec.md §6/§8).
const DefaultPort = 12000

// DefaultBrowseTimeout bounds an unbounded-context Browse call.
const DefaultBrowseTimeout = 10 * time.Second

// DefaultLookupTimeout bounds an unbounded-context Lookup call.
const DefaultLookupTimeout = 5 * time.Second
