package addr

import "testing"

func TestIPv4AddressRoundTrip(t *testing.T) {
	a, err := ParseIPv4Address("192.0.2.1")
	if err != nil {
		t.Fatalf("ParseIPv4Address: %v", err)
	}
	if a.String() != "192.0.2.1" {
		t.Fatalf("got %q, want 192.0.2.1", a.String())
	}
}

func TestIPv4AddressRejectsIPv6(t *testing.T) {
	if _, err := ParseIPv4Address("::1"); err != ErrInvalidAddress {
		t.Fatalf("got %v, want ErrInvalidAddress", err)
	}
}

func TestIPv6AddressRoundTrip(t *testing.T) {
	a, err := ParseIPv6Address("2001:db8::1")
	if err != nil {
		t.Fatalf("ParseIPv6Address: %v", err)
	}
	if a.String() != "2001:db8::1" {
		t.Fatalf("got %q, want 2001:db8::1", a.String())
	}
}

func TestEthernetAddressRoundTrip(t *testing.T) {
	e, err := ParseEthernetAddress("01:02:03:04:05:06")
	if err != nil {
		t.Fatalf("ParseEthernetAddress: %v", err)
	}
	if e.String() != "01:02:03:04:05:06" {
		t.Fatalf("got %q, want 01:02:03:04:05:06", e.String())
	}
}

func TestEthernetAddressBroadcastAndMulticast(t *testing.T) {
	bcast, _ := ParseEthernetAddress("ff:ff:ff:ff:ff:ff")
	if !bcast.IsBroadcast() {
		t.Error("expected broadcast address to be recognized")
	}
	mcast, _ := ParseEthernetAddress("01:00:5e:00:00:01")
	if !mcast.IsMulticast() {
		t.Error("expected multicast address to be recognized")
	}
	unicast, _ := ParseEthernetAddress("02:00:00:00:00:01")
	if unicast.IsBroadcast() || unicast.IsMulticast() {
		t.Error("unicast address incorrectly classified")
	}
}

func TestHostnameValidation(t *testing.T) {
	if _, err := ParseHostname("node1.example.com"); err != nil {
		t.Fatalf("ParseHostname: %v", err)
	}
	if _, err := ParseHostname(""); err != ErrInvalidHostname {
		t.Fatalf("got %v, want ErrInvalidHostname for empty string", err)
	}
}

func TestPortNumberRoundTrip(t *testing.T) {
	p, err := ParsePortNumber("12000")
	if err != nil {
		t.Fatalf("ParsePortNumber: %v", err)
	}
	if p.String() != "12000" {
		t.Fatalf("got %q, want 12000", p.String())
	}
}

func TestPrefixLengthBounds(t *testing.T) {
	if _, err := ParseIPv4PrefixLength("33"); err != ErrInvalidPrefixLength {
		t.Fatalf("got %v, want ErrInvalidPrefixLength", err)
	}
	if _, err := ParseIPv6PrefixLength("129"); err != ErrInvalidPrefixLength {
		t.Fatalf("got %v, want ErrInvalidPrefixLength", err)
	}
	if _, err := ParseIPv4PrefixLength("24"); err != nil {
		t.Fatalf("ParseIPv4PrefixLength(24): %v", err)
	}
}

func TestIPv4EndpointRoundTrip(t *testing.T) {
	e, err := ParseIPv4Endpoint("198.51.100.7:12000")
	if err != nil {
		t.Fatalf("ParseIPv4Endpoint: %v", err)
	}
	if e.String() != "198.51.100.7:12000" {
		t.Fatalf("got %q, want 198.51.100.7:12000", e.String())
	}
}

func TestIPv6EndpointRoundTrip(t *testing.T) {
	e, err := ParseIPv6Endpoint("[2001:db8::1]:12000")
	if err != nil {
		t.Fatalf("ParseIPv6Endpoint: %v", err)
	}
	if e.String() != "[2001:db8::1]:12000" {
		t.Fatalf("got %q, want [2001:db8::1]:12000", e.String())
	}
}

func TestHostnameEndpointRoundTrip(t *testing.T) {
	e, err := ParseHostnameEndpoint("node1.example.com:12000")
	if err != nil {
		t.Fatalf("ParseHostnameEndpoint: %v", err)
	}
	if e.String() != "node1.example.com:12000" {
		t.Fatalf("got %q, want node1.example.com:12000", e.String())
	}
}

func TestIPv4RouteRoundTrip(t *testing.T) {
	r, err := ParseIPv4Route("10.0.0.0/24")
	if err != nil {
		t.Fatalf("ParseIPv4Route: %v", err)
	}
	if r.String() != "10.0.0.0/24" {
		t.Fatalf("got %q, want 10.0.0.0/24", r.String())
	}
}

func TestIPv6RouteRoundTrip(t *testing.T) {
	r, err := ParseIPv6Route("fd00::/64")
	if err != nil {
		t.Fatalf("ParseIPv6Route: %v", err)
	}
	if r.String() != "fd00::/64" {
		t.Fatalf("got %q, want fd00::/64", r.String())
	}
}

func TestIPv4RouteRejectsMissingPrefix(t *testing.T) {
	if _, err := ParseIPv4Route("10.0.0.0"); err != ErrInvalidRoute {
		t.Fatalf("got %v, want ErrInvalidRoute", err)
	}
}
