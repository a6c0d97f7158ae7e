package endpoint

import (
	"context"
	"time"
)

// timerLoop drives every periodic behavior that is not triggered directly
// by an inbound datagram or tap frame: per-peer Session.Tick (keep-alive,
// rekey, session timeout) and Router.Prune (expiring learned Ethernet
// addresses).
func (e *Endpoint) timerLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.tick(ctx, now)
		}
	}
}

func (e *Endpoint) tick(ctx context.Context, now time.Time) {
	e.router.Prune(now)

	e.mu.RLock()
	conns := make([]*peerConn, 0, len(e.byAddr))
	for _, pc := range e.byAddr {
		conns = append(conns, pc)
	}
	e.mu.RUnlock()

	for _, pc := range conns {
		pc.session.Tick(ctx, now, pc.sender)
	}
}
