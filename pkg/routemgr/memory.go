package routemgr

import (
	"context"
	"errors"
	"net/netip"
	"sync"
)

// ErrNotFound is returned by RemoveRoute for an unknown handle.
var ErrNotFound = errors.New("routemgr: route not found")

// Memory is an in-process Manager backed by a map, for tests and for
// nodes that want to observe routing decisions without touching the
// kernel table.
type Memory struct {
	mu     sync.Mutex
	next   RouteHandle
	routes map[RouteHandle]Route
}

// NewMemory creates an empty in-memory route table.
func NewMemory() *Memory {
	return &Memory{routes: make(map[RouteHandle]Route)}
}

func (m *Memory) AddRoute(_ context.Context, network netip.Prefix, gateway *netip.Addr, metric int) (RouteHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := m.next
	m.routes[h] = Route{Network: network, Gateway: gateway, Metric: metric}
	return h, nil
}

func (m *Memory) RemoveRoute(_ context.Context, h RouteHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[h]; !ok {
		return ErrNotFound
	}
	delete(m.routes, h)
	return nil
}

// Routes returns a snapshot of every route currently installed.
func (m *Memory) Routes() []Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r)
	}
	return out
}
