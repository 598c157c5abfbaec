// Package iface implements the glue between the network layer and the link
// layer: it encapsulates outbound IPv4 datagrams into Ethernet frames,
// resolving next-hop hardware addresses over ARP, and turns inbound frames
// back into datagrams for the layer above.
package iface

import (
	"bytes"
	"net"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/netforge/ip2eth/internal/arp"
	"github.com/netforge/ip2eth/internal/ethernet"
	"github.com/netforge/ip2eth/internal/ipv4"
)

const (
	// CacheEntryTTL is how long a learned mapping stays valid without being
	// refreshed by another observation.
	CacheEntryTTL = 30 * time.Second

	// RequestSuppressionTTL is how long repeated misses for the same next hop
	// are forbidden from broadcasting another resolution request.
	RequestSuppressionTTL = 5 * time.Second
)

// Neighbor is a resolved next-hop mapping as seen by observers of the cache.
type Neighbor struct {
	IP           netip.Addr
	HardwareAddr net.HardwareAddr
	TTL          time.Duration
}

// PendingResolution is an in-flight resolution request.
type PendingResolution struct {
	IP        netip.Addr
	Remaining time.Duration
}

type cacheEntry struct {
	hw  net.HardwareAddr
	ttl time.Duration
}

type blockedDatagram struct {
	nextHop netip.Addr
	dgram   *ipv4.Datagram
}

// Option configures an Interface.
type Option func(*Interface)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(i *Interface) { i.log = log }
}

// WithLearnFunc registers a hook invoked each time a mapping is learned or
// refreshed. Used to mirror the cache into the kernel neighbor table.
func WithLearnFunc(fn func(Neighbor)) Option {
	return func(i *Interface) { i.learn = fn }
}

// Interface owns all resolution state for one attachment point: the mapping
// cache, the in-flight request tracker, the queue of datagrams blocked on
// resolution, and the queue of frames ready for the wire.
//
// It is single-threaded and clock-driven: nothing expires until Tick is
// called, and callers that share an Interface across goroutines must
// serialize access themselves.
type Interface struct {
	hwAddr net.HardwareAddr
	ipAddr netip.Addr

	cache   map[netip.Addr]cacheEntry
	pending map[netip.Addr]time.Duration
	blocked []blockedDatagram
	out     []ethernet.Frame

	learn func(Neighbor)
	log   *zap.SugaredLogger
}

// New builds an Interface with the given Ethernet and IPv4 addresses.
func New(hw net.HardwareAddr, ip netip.Addr, opts ...Option) *Interface {
	i := &Interface{
		hwAddr:  hw,
		ipAddr:  ip.Unmap(),
		cache:   make(map[netip.Addr]cacheEntry),
		pending: make(map[netip.Addr]time.Duration),
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.log.Debugw("interface up", "hwaddr", hw.String(), "ip", i.ipAddr.String())
	return i
}

// HardwareAddr returns the interface's own Ethernet address.
func (i *Interface) HardwareAddr() net.HardwareAddr { return i.hwAddr }

// IP returns the interface's own IPv4 address.
func (i *Interface) IP() netip.Addr { return i.ipAddr }

// SendDatagram queues dgram for transmission to nextHop. If the next hop's
// hardware address is known the frame goes out immediately; otherwise the
// datagram is parked behind an ARP request. Delivery is best effort and the
// call never fails: a datagram whose resolution times out is silently
// dropped, and retrying is the business of the layers above.
func (i *Interface) SendDatagram(dgram *ipv4.Datagram, nextHop netip.Addr) {
	nextHop = nextHop.Unmap()

	if entry, ok := i.cache[nextHop]; ok {
		i.enqueueDatagram(dgram, entry.hw)
		return
	}

	// One outstanding request per next hop: additional misses inside the
	// suppression window only park their datagram.
	if _, waiting := i.pending[nextHop]; !waiting {
		i.enqueueRequest(nextHop)
		i.pending[nextHop] = RequestSuppressionTTL
	}
	i.blocked = append(i.blocked, blockedDatagram{nextHop: nextHop, dgram: dgram})
}

// ReceiveFrame accepts one inbound frame. It returns a datagram when the
// frame carried IPv4 traffic addressed to us, and nil otherwise; ARP traffic
// is consumed internally and never surfaces. Frames for other stations and
// payloads that fail to parse are dropped without comment, since the wire is
// a shared, untrusted medium.
func (i *Interface) ReceiveFrame(frame ethernet.Frame) *ipv4.Datagram {
	if !bytes.Equal(frame.Destination, i.hwAddr) && !bytes.Equal(frame.Destination, ethernet.Broadcast) {
		return nil
	}

	switch frame.Type {
	case ethernet.EtherTypeIPv4:
		dgram, err := ipv4.Parse(frame.Payload)
		if err != nil {
			i.log.Debugw("discarding unparsable ipv4 payload", "err", err)
			return nil
		}
		return dgram
	case ethernet.EtherTypeARP:
		msg, err := arp.Parse(frame.Payload)
		if err != nil {
			i.log.Debugw("discarding unparsable arp payload", "err", err)
			return nil
		}
		i.handleResolution(msg)
	}
	return nil
}

// handleResolution reacts to one parsed ARP message. Requests for our
// address get a unicast reply; both directed requests and directed replies
// teach us the sender's mapping, which also releases any datagrams blocked
// on that sender.
func (i *Interface) handleResolution(msg arp.Message) {
	isRequest := msg.Operation == arp.OperationRequest && msg.TargetIP == i.ipAddr
	isReply := msg.Operation == arp.OperationReply && bytes.Equal(msg.TargetHardwareAddr, i.hwAddr)

	if isRequest {
		i.enqueueReply(msg.SenderHardwareAddr, msg.SenderIP)
	}
	if !isRequest && !isReply {
		return
	}

	i.learnMapping(msg.SenderIP, msg.SenderHardwareAddr)
}

// learnMapping records a fresh sender mapping, cancels the matching pending
// request, and resubmits every datagram that was blocked on it. The resubmit
// re-enters SendDatagram, which is safe: the cache entry it needs was
// inserted just above, so each resubmission hits and terminates.
func (i *Interface) learnMapping(ip netip.Addr, hw net.HardwareAddr) {
	i.cache[ip] = cacheEntry{hw: hw, ttl: CacheEntryTTL}
	delete(i.pending, ip)

	i.log.Debugw("learned mapping", "ip", ip.String(), "hwaddr", hw.String())
	if i.learn != nil {
		i.learn(Neighbor{IP: ip, HardwareAddr: hw, TTL: CacheEntryTTL})
	}

	var resubmit []blockedDatagram
	kept := i.blocked[:0]
	for _, b := range i.blocked {
		if b.nextHop == ip {
			resubmit = append(resubmit, b)
		} else {
			kept = append(kept, b)
		}
	}
	i.blocked = kept

	for _, b := range resubmit {
		i.SendDatagram(b.dgram, b.nextHop)
	}
}

// Tick advances the interface's clock by elapsed, expiring cache entries and
// pending requests whose remaining time is up. An entry with exactly elapsed
// remaining expires now, not on the next call. Datagrams blocked on a request
// that timed out are dropped.
func (i *Interface) Tick(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	for ip, entry := range i.cache {
		if entry.ttl <= elapsed {
			delete(i.cache, ip)
			i.log.Debugw("mapping expired", "ip", ip.String())
			continue
		}
		entry.ttl -= elapsed
		i.cache[ip] = entry
	}

	for ip, remaining := range i.pending {
		if remaining <= elapsed {
			delete(i.pending, ip)
			i.dropBlocked(ip)
			continue
		}
		i.pending[ip] = remaining - elapsed
	}
}

func (i *Interface) dropBlocked(ip netip.Addr) {
	kept := i.blocked[:0]
	dropped := 0
	for _, b := range i.blocked {
		if b.nextHop == ip {
			dropped++
			continue
		}
		kept = append(kept, b)
	}
	i.blocked = kept
	if dropped > 0 {
		i.log.Debugw("resolution timed out, dropping blocked datagrams", "ip", ip.String(), "count", dropped)
	}
}

// PollFrame removes and returns the oldest frame awaiting transmission.
// A frame counts as sent the moment it is queued; polling only schedules it
// onto the wire.
func (i *Interface) PollFrame() (ethernet.Frame, bool) {
	if len(i.out) == 0 {
		return ethernet.Frame{}, false
	}
	frame := i.out[0]
	i.out = i.out[1:]
	return frame, true
}

func (i *Interface) enqueueDatagram(dgram *ipv4.Datagram, dst net.HardwareAddr) {
	payload, err := dgram.Marshal()
	if err != nil {
		i.log.Debugw("dropping datagram that failed to serialize", "err", err)
		return
	}
	i.out = append(i.out, ethernet.Frame{
		Destination: dst,
		Source:      i.hwAddr,
		Type:        ethernet.EtherTypeIPv4,
		Payload:     payload,
	})
}

func (i *Interface) enqueueRequest(nextHop netip.Addr) {
	msg := arp.Message{
		Operation:          arp.OperationRequest,
		SenderHardwareAddr: i.hwAddr,
		SenderIP:           i.ipAddr,
		TargetIP:           nextHop,
	}
	i.enqueueResolutionFrame(msg, ethernet.Broadcast)
	i.log.Debugw("broadcasting resolution request", "ip", nextHop.String())
}

func (i *Interface) enqueueReply(requesterHW net.HardwareAddr, requesterIP netip.Addr) {
	msg := arp.Message{
		Operation:          arp.OperationReply,
		SenderHardwareAddr: i.hwAddr,
		SenderIP:           i.ipAddr,
		TargetHardwareAddr: requesterHW,
		TargetIP:           requesterIP,
	}
	i.enqueueResolutionFrame(msg, requesterHW)
}

func (i *Interface) enqueueResolutionFrame(msg arp.Message, dst net.HardwareAddr) {
	payload, err := msg.Marshal()
	if err != nil {
		i.log.Debugw("dropping arp message that failed to serialize", "err", err)
		return
	}
	i.out = append(i.out, ethernet.Frame{
		Destination: dst,
		Source:      i.hwAddr,
		Type:        ethernet.EtherTypeARP,
		Payload:     payload,
	})
}
