package discovery

import "errors"

var (
	// ErrClosed is returned by any method called after Close.
	ErrClosed = errors.New("discovery: closed")
	// ErrAlreadyStarted is returned by Advertiser.Start if already advertising.
	ErrAlreadyStarted = errors.New("discovery: already advertising")
	// ErrNotStarted is returned by Advertiser.Stop if not currently advertising.
	ErrNotStarted = errors.New("discovery: not advertising")
	// ErrInvalidHostName is returned for an empty host name.
	ErrInvalidHostName = errors.New("discovery: invalid host name")
	// ErrInvalidPort is returned for a port outside 1-65535.
	ErrInvalidPort = errors.New("discovery: invalid port")
	// ErrNoAddresses is returned when no usable local address can be found
	// to advertise.
	ErrNoAddresses = errors.New("discovery: no local addresses available")
	// ErrServiceNotFound is returned by Lookup when the instance does not
	// resolve within the timeout.
	ErrServiceNotFound = errors.New("discovery: service not found")
	// ErrTimeout is returned when a browse or lookup exceeds its deadline.
	ErrTimeout = errors.New("discovery: timed out")
	// ErrInvalidTXTRecord is returned when a TXT record cannot be decoded
	// into a PeerTXT.
	ErrInvalidTXTRecord = errors.New("discovery: invalid TXT record")
)
