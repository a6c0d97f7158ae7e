package discovery

import "net"

// SortIPsByPreference orders ips with the addresses most likely to be
// reachable and stable first: global-unicast IPv6, then unique-local
// IPv6, then link-local IPv6, then IPv4, with loopback and multicast
// addresses last. Grounded on the teacher's address.go, which uses the
// identical preference order to pick an advertised address for a
// service with several interfaces.
func SortIPsByPreference(ips []net.IP) []net.IP {
	scored := make([]net.IP, len(ips))
	copy(scored, ips)
	score := func(ip net.IP) int {
		switch {
		case ip.IsLoopback() || ip.IsMulticast():
			return 5
		case ip.To4() != nil:
			return 4
		case isGlobalUnicast(ip):
			return 1
		case isUniqueLocal(ip):
			return 2
		case ip.IsLinkLocalUnicast():
			return 3
		default:
			return 4
		}
	}
	// insertion sort: these slices are always small (a handful of
	// interface addresses), and it keeps equal-score entries in their
	// original order.
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && score(scored[j]) < score(scored[j-1]); j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
	return scored
}

func isGlobalUnicast(ip net.IP) bool {
	return ip.To4() == nil && ip.IsGlobalUnicast() && !isUniqueLocal(ip)
}

func isUniqueLocal(ip net.IP) bool {
	return len(ip) == net.IPv6len && ip[0] == 0xfc || (len(ip) == net.IPv6len && ip[0] == 0xfd)
}

// FilterIPv6 returns only the IPv6 addresses in ips.
func FilterIPv6(ips []net.IP) []net.IP {
	out := make([]net.IP, 0, len(ips))
	for _, ip := range ips {
		if ip.To4() == nil {
			out = append(out, ip)
		}
	}
	return out
}

// FilterIPv4 returns only the IPv4 addresses in ips.
func FilterIPv4(ips []net.IP) []net.IP {
	out := make([]net.IP, 0, len(ips))
	for _, ip := range ips {
		if ip.To4() != nil {
			out = append(out, ip)
		}
	}
	return out
}

// GetLocalAddresses returns every non-loopback unicast address bound to
// the host's network interfaces.
func GetLocalAddresses() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		out = append(out, ipNet.IP)
	}
	return out, nil
}

// GetLocalIPv6Addresses returns the IPv6 subset of GetLocalAddresses.
func GetLocalIPv6Addresses() ([]net.IP, error) {
	addrs, err := GetLocalAddresses()
	if err != nil {
		return nil, err
	}
	return FilterIPv6(addrs), nil
}
