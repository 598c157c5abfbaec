// Package neighbor mirrors mappings learned on the bridged interface into
// the kernel neighbor table, so the host's own traffic benefits from the
// resolutions the bridge has already paid for.
package neighbor

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"

	"github.com/netforge/ip2eth/internal/iface"
)

// neighAPI is the slice of netlink the mirror uses, swappable in tests.
type neighAPI interface {
	NeighSet(*netlink.Neigh) error
	NeighDel(*netlink.Neigh) error
}

type kernelNeigh struct{}

func (kernelNeigh) NeighSet(n *netlink.Neigh) error { return netlink.NeighSet(n) }
func (kernelNeigh) NeighDel(n *netlink.Neigh) error { return netlink.NeighDel(n) }

type Mirror struct {
	linkIndex int
	nl        neighAPI
	log       *zap.SugaredLogger

	mu        sync.Mutex
	installed map[netip.Addr]struct{}
}

// NewMirror resolves the target interface by name. The interface must exist;
// mirroring onto it can still fail per entry at runtime.
func NewMirror(ifaceName string, log *zap.SugaredLogger) (*Mirror, error) {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("find interface %s: %w", ifaceName, err)
	}

	return &Mirror{
		linkIndex: link.Attrs().Index,
		nl:        kernelNeigh{},
		log:       log,
		installed: make(map[netip.Addr]struct{}),
	}, nil
}

// LinkIndex returns the kernel index of the mirrored interface.
func (m *Mirror) LinkIndex() int { return m.linkIndex }

// Set installs or refreshes a neighbor entry for a learned mapping. Failures
// are logged, not returned: mirroring is opportunistic and the bridge's own
// cache remains authoritative.
func (m *Mirror) Set(n iface.Neighbor) {
	neigh := &netlink.Neigh{
		LinkIndex:    m.linkIndex,
		IP:           net.IP(n.IP.AsSlice()),
		HardwareAddr: n.HardwareAddr,
		State:        netlink.NUD_REACHABLE,
		Family:       netlink.FAMILY_V4,
	}

	if err := m.nl.NeighSet(neigh); err != nil {
		m.log.Warnw("failed to mirror neighbor entry", "ip", n.IP.String(), "err", err)
		return
	}

	m.mu.Lock()
	m.installed[n.IP] = struct{}{}
	m.mu.Unlock()

	m.log.Infow("mirrored neighbor entry", "ip", n.IP.String(), "hwaddr", n.HardwareAddr.String())
}

// Delete removes a mirrored entry.
func (m *Mirror) Delete(ip netip.Addr) error {
	neigh := &netlink.Neigh{
		LinkIndex: m.linkIndex,
		IP:        net.IP(ip.AsSlice()),
		Family:    netlink.FAMILY_V4,
	}

	if err := m.nl.NeighDel(neigh); err != nil {
		return fmt.Errorf("delete neighbor entry for %s: %w", ip, err)
	}

	m.mu.Lock()
	delete(m.installed, ip)
	m.mu.Unlock()
	return nil
}

// Cleanup removes every entry the mirror has installed, so nothing stale is
// left in the kernel table on shutdown.
func (m *Mirror) Cleanup() {
	m.mu.Lock()
	ips := make([]netip.Addr, 0, len(m.installed))
	for ip := range m.installed {
		ips = append(ips, ip)
	}
	m.mu.Unlock()

	for _, ip := range ips {
		if err := m.Delete(ip); err != nil {
			m.log.Warnw("failed to remove mirrored neighbor entry", "ip", ip.String(), "err", err)
		}
	}
}
