// Package probe keeps resolved neighbors warm. Pinging a cached next hop
// makes it answer traffic, and its replies refresh both our cache and the
// kernel's, so active paths do not expire mid-conversation.
package probe

import (
	"context"
	"net/netip"
	"time"

	"github.com/go-ping/ping"
	"go.uber.org/zap"

	"github.com/netforge/ip2eth/internal/iface"
)

type NeighborSource interface {
	Neighbors() []iface.Neighbor
}

const pingTimeout = 2 * time.Second

type Pinger struct {
	source   NeighborSource
	interval time.Duration
	log      *zap.SugaredLogger

	// pingOne is the per-neighbor probe, swappable in tests.
	pingOne func(netip.Addr)
}

func New(source NeighborSource, interval time.Duration, log *zap.SugaredLogger) *Pinger {
	p := &Pinger{
		source:   source,
		interval: interval,
		log:      log,
	}
	p.pingOne = p.pingOnce
	return p
}

// Run pings every cached neighbor once per interval until ctx is cancelled.
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, n := range p.source.Neighbors() {
				p.pingOne(n.IP)
			}
		}
	}
}

func (p *Pinger) pingOnce(ip netip.Addr) {
	pinger, err := ping.NewPinger(ip.String())
	if err != nil {
		p.log.Warnw("failed to create pinger", "ip", ip.String(), "err", err)
		return
	}

	pinger.Count = 1
	pinger.Timeout = pingTimeout
	pinger.SetPrivileged(true)

	if err := pinger.Run(); err != nil {
		p.log.Debugw("neighbor ping failed", "ip", ip.String(), "err", err)
	}
}
