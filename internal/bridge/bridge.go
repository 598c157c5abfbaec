// Package bridge pumps live traffic through an iface.Interface: frames
// captured from the wire go in, frames the interface queues go out, and the
// interface's virtual clock is advanced from wall time. All access to the
// interface is serialized here, since the interface itself does no locking.
package bridge

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netforge/ip2eth/internal/ethernet"
	"github.com/netforge/ip2eth/internal/iface"
	"github.com/netforge/ip2eth/internal/ipv4"
)

// FrameConn is a bidirectional raw-frame transport, normally a pcap handle.
type FrameConn interface {
	// ReadFrame blocks until a frame arrives or the transport fails.
	ReadFrame() ([]byte, error)
	WriteFrame([]byte) error
	Close()
}

const defaultTickInterval = 100 * time.Millisecond

// Option configures a Bridge.
type Option func(*Bridge)

// WithTickInterval overrides how often the interface clock is advanced.
func WithTickInterval(d time.Duration) Option {
	return func(b *Bridge) { b.tickInterval = d }
}

// WithDeliverFunc registers the consumer of inbound datagrams. The default
// logs and drops them.
func WithDeliverFunc(fn func(*ipv4.Datagram)) Option {
	return func(b *Bridge) { b.deliver = fn }
}

type Bridge struct {
	mu  sync.Mutex
	ifc *iface.Interface

	conn         FrameConn
	deliver      func(*ipv4.Datagram)
	tickInterval time.Duration
	log          *zap.SugaredLogger
}

func New(ifc *iface.Interface, conn FrameConn, log *zap.SugaredLogger, opts ...Option) *Bridge {
	b := &Bridge{
		ifc:          ifc,
		conn:         conn,
		tickInterval: defaultTickInterval,
		log:          log,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.deliver == nil {
		b.deliver = func(d *ipv4.Datagram) {
			log.Infow("delivered datagram has no consumer, dropping",
				"src", d.Src().String(), "dst", d.Dst().String())
		}
	}
	return b
}

// Run captures inbound frames and drives the clock until ctx is cancelled or
// the transport fails.
func (b *Bridge) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop(ctx) }()

	ticker := time.NewTicker(b.tickInterval)
	defer ticker.Stop()
	defer b.conn.Close()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			b.mu.Lock()
			b.ifc.Tick(elapsed)
			b.flushLocked()
			b.mu.Unlock()
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context) error {
	for {
		data, err := b.conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		frame, err := ethernet.Parse(data)
		if err != nil {
			b.log.Debugw("ignoring unparsable frame", "err", err)
			continue
		}

		b.mu.Lock()
		dgram := b.ifc.ReceiveFrame(frame)
		b.flushLocked()
		b.mu.Unlock()

		if dgram != nil {
			b.deliver(dgram)
		}
	}
}

// SendDatagram hands a locally originated datagram to the interface and
// flushes whatever frames that produced.
func (b *Bridge) SendDatagram(dgram *ipv4.Datagram, nextHop netip.Addr) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ifc.SendDatagram(dgram, nextHop)
	b.flushLocked()
}

// flushLocked drains the interface's outbound queue onto the transport.
// Callers must hold b.mu.
func (b *Bridge) flushLocked() {
	for {
		frame, ok := b.ifc.PollFrame()
		if !ok {
			return
		}

		data, err := frame.Marshal()
		if err != nil {
			b.log.Warnw("dropping unserializable frame", "err", err)
			continue
		}
		if err := b.conn.WriteFrame(data); err != nil {
			b.log.Warnw("failed to transmit frame", "err", err)
		}
	}
}

// Neighbors snapshots the interface's resolution cache.
func (b *Bridge) Neighbors() []iface.Neighbor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ifc.Neighbors()
}

// PendingResolutions snapshots the interface's in-flight requests.
func (b *Bridge) PendingResolutions() []iface.PendingResolution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ifc.PendingResolutions()
}

// QueuedFrames reports the outbound queue depth.
func (b *Bridge) QueuedFrames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ifc.QueuedFrames()
}

// BlockedDatagrams reports how many datagrams are awaiting resolution.
func (b *Bridge) BlockedDatagrams() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ifc.BlockedDatagrams()
}
