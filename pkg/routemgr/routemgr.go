// Package routemgr defines the route-table collaborator the Router
// pushes learned and configured routes into. Actual kernel routing-table
// manipulation is out of scope; production builds wire Manager to a
// platform-specific implementation.
package routemgr

import (
	"context"
	"net/netip"
)

// RouteHandle identifies a route previously added with AddRoute, opaque
// to callers and only meaningful to the Manager that issued it.
type RouteHandle uint64

// Manager is the external route-manager collaborator.
type Manager interface {
	AddRoute(ctx context.Context, network netip.Prefix, gateway *netip.Addr, metric int) (RouteHandle, error)
	RemoveRoute(ctx context.Context, h RouteHandle) error
}

// Route is a snapshot of one entry a Manager is holding, used by the
// in-memory Manager and by tests that want to assert on table contents.
type Route struct {
	Network netip.Prefix
	Gateway *netip.Addr
	Metric  int
}
