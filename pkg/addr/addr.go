// Package addr implements the value types FSCP configuration and the
// contact sub-protocol exchange over the wire: IP addresses, Ethernet
// addresses, hostnames, ports, prefix lengths, endpoints and routes.
// Every type parses from and formats back to the same string.
package addr

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

var (
	ErrInvalidAddress      = errors.New("addr: invalid address")
	ErrInvalidHostname     = errors.New("addr: invalid hostname")
	ErrInvalidPort         = errors.New("addr: invalid port number")
	ErrInvalidPrefixLength = errors.New("addr: invalid prefix length")
	ErrInvalidEndpoint     = errors.New("addr: invalid endpoint")
	ErrInvalidRoute        = errors.New("addr: invalid route")
)

// IPv4Address is a parsed dotted-quad address.
type IPv4Address struct{ addr netip.Addr }

func ParseIPv4Address(s string) (IPv4Address, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return IPv4Address{}, ErrInvalidAddress
	}
	return IPv4Address{addr: a}, nil
}

func (a IPv4Address) String() string { return a.addr.String() }
func (a IPv4Address) Netip() netip.Addr { return a.addr }
func (a IPv4Address) IsValid() bool   { return a.addr.IsValid() }

// IPv6Address is a parsed IPv6 address.
type IPv6Address struct{ addr netip.Addr }

func ParseIPv6Address(s string) (IPv6Address, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is6() {
		return IPv6Address{}, ErrInvalidAddress
	}
	return IPv6Address{addr: a}, nil
}

func (a IPv6Address) String() string  { return a.addr.String() }
func (a IPv6Address) Netip() netip.Addr { return a.addr }
func (a IPv6Address) IsValid() bool   { return a.addr.IsValid() }

// EthernetAddress is a 48-bit MAC address, as carried in tap frame headers
// and the router's learning table.
type EthernetAddress [6]byte

func ParseEthernetAddress(s string) (EthernetAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return EthernetAddress{}, ErrInvalidAddress
	}
	var e EthernetAddress
	copy(e[:], hw)
	return e, nil
}

func (e EthernetAddress) String() string {
	return net.HardwareAddr(e[:]).String()
}

func (e EthernetAddress) IsBroadcast() bool {
	for _, b := range e {
		if b != 0xff {
			return false
		}
	}
	return true
}

func (e EthernetAddress) IsMulticast() bool {
	return e[0]&0x01 == 1
}

// Hostname is a validated DNS hostname (used for a CONTACT endpoint that
// refers to a peer by name instead of by address).
type Hostname string

func ParseHostname(s string) (Hostname, error) {
	if s == "" || len(s) > 253 {
		return "", ErrInvalidHostname
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return "", ErrInvalidHostname
		}
	}
	return Hostname(s), nil
}

func (h Hostname) String() string { return string(h) }

// PortNumber is a UDP port (FSCP's default is 12000).
type PortNumber uint16

func ParsePortNumber(s string) (PortNumber, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, ErrInvalidPort
	}
	return PortNumber(n), nil
}

func (p PortNumber) String() string { return strconv.FormatUint(uint64(p), 10) }

// IPv4PrefixLength is a CIDR prefix length in 0..32.
type IPv4PrefixLength uint8

func ParseIPv4PrefixLength(s string) (IPv4PrefixLength, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > 32 {
		return 0, ErrInvalidPrefixLength
	}
	return IPv4PrefixLength(n), nil
}

func (p IPv4PrefixLength) String() string { return strconv.FormatUint(uint64(p), 10) }

// IPv6PrefixLength is a CIDR prefix length in 0..128.
type IPv6PrefixLength uint8

func ParseIPv6PrefixLength(s string) (IPv6PrefixLength, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > 128 {
		return 0, ErrInvalidPrefixLength
	}
	return IPv6PrefixLength(n), nil
}

func (p IPv6PrefixLength) String() string { return strconv.FormatUint(uint64(p), 10) }

// IPv4Endpoint is an "address:port" pair for contacting a peer over IPv4.
type IPv4Endpoint struct {
	Address IPv4Address
	Port    PortNumber
}

func ParseIPv4Endpoint(s string) (IPv4Endpoint, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return IPv4Endpoint{}, ErrInvalidEndpoint
	}
	a, err := ParseIPv4Address(host)
	if err != nil {
		return IPv4Endpoint{}, ErrInvalidEndpoint
	}
	p, err := ParsePortNumber(port)
	if err != nil {
		return IPv4Endpoint{}, ErrInvalidEndpoint
	}
	return IPv4Endpoint{Address: a, Port: p}, nil
}

func (e IPv4Endpoint) String() string {
	return net.JoinHostPort(e.Address.String(), e.Port.String())
}

// IPv6Endpoint is a "[address]:port" pair for contacting a peer over IPv6.
type IPv6Endpoint struct {
	Address IPv6Address
	Port    PortNumber
}

func ParseIPv6Endpoint(s string) (IPv6Endpoint, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return IPv6Endpoint{}, ErrInvalidEndpoint
	}
	a, err := ParseIPv6Address(host)
	if err != nil {
		return IPv6Endpoint{}, ErrInvalidEndpoint
	}
	p, err := ParsePortNumber(port)
	if err != nil {
		return IPv6Endpoint{}, ErrInvalidEndpoint
	}
	return IPv6Endpoint{Address: a, Port: p}, nil
}

func (e IPv6Endpoint) String() string {
	return net.JoinHostPort(e.Address.String(), e.Port.String())
}

// HostnameEndpoint is a "host:port" pair where host is resolved at
// connect time rather than fixed in configuration.
type HostnameEndpoint struct {
	Host Hostname
	Port PortNumber
}

func ParseHostnameEndpoint(s string) (HostnameEndpoint, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return HostnameEndpoint{}, ErrInvalidEndpoint
	}
	h, err := ParseHostname(host)
	if err != nil {
		return HostnameEndpoint{}, ErrInvalidEndpoint
	}
	p, err := ParsePortNumber(port)
	if err != nil {
		return HostnameEndpoint{}, ErrInvalidEndpoint
	}
	return HostnameEndpoint{Host: h, Port: p}, nil
}

func (e HostnameEndpoint) String() string {
	return net.JoinHostPort(e.Host.String(), e.Port.String())
}

// IPv4Route is a destination network reachable through a peer, pushed
// into the route manager when that peer's session comes up.
type IPv4Route struct {
	Network      IPv4Address
	PrefixLength IPv4PrefixLength
}

func ParseIPv4Route(s string) (IPv4Route, error) {
	network, plen, ok := strings.Cut(s, "/")
	if !ok {
		return IPv4Route{}, ErrInvalidRoute
	}
	a, err := ParseIPv4Address(network)
	if err != nil {
		return IPv4Route{}, ErrInvalidRoute
	}
	p, err := ParseIPv4PrefixLength(plen)
	if err != nil {
		return IPv4Route{}, ErrInvalidRoute
	}
	return IPv4Route{Network: a, PrefixLength: p}, nil
}

func (r IPv4Route) String() string {
	return fmt.Sprintf("%s/%s", r.Network, r.PrefixLength)
}

// IPv6Route is the IPv6 counterpart of IPv4Route.
type IPv6Route struct {
	Network      IPv6Address
	PrefixLength IPv6PrefixLength
}

func ParseIPv6Route(s string) (IPv6Route, error) {
	network, plen, ok := strings.Cut(s, "/")
	if !ok {
		return IPv6Route{}, ErrInvalidRoute
	}
	a, err := ParseIPv6Address(network)
	if err != nil {
		return IPv6Route{}, ErrInvalidRoute
	}
	p, err := ParseIPv6PrefixLength(plen)
	if err != nil {
		return IPv6Route{}, ErrInvalidRoute
	}
	return IPv6Route{Network: a, PrefixLength: p}, nil
}

func (r IPv6Route) String() string {
	return fmt.Sprintf("%s/%s", r.Network, r.PrefixLength)
}
